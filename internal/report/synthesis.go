package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/tickerbrief/internal/helpers"
	"github.com/mohammad-safakhou/tickerbrief/models"
)

const (
	promptArticleLimit = 5
	promptVideoLimit   = 5
	promptPriceLimit   = 10
	// Full article bodies are truncated before prompting.
	promptContentLimit = 1000
)

// requiredAnalysisFields must all be present and non-empty in the model
// response; anything less is a synthesis failure.
var requiredAnalysisFields = []string{
	"summary",
	"technical_analysis",
	"fundamental_analysis",
	"news_sentiment",
	"risks",
	"opportunities",
	"recommendation",
}

// Completer is the LLM dependency of the synthesis step.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Synthesizer turns the gathered inputs into a structured analysis via
// a single LLM call with a strict JSON contract.
type Synthesizer struct {
	llm    Completer
	logger *log.Logger
}

func NewSynthesizer(llm Completer, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[SYNTH] ", log.LstdFlags)
	}
	return &Synthesizer{llm: llm, logger: logger}
}

// Synthesize prompts the model with the normalized inputs and parses
// the response. The response must be a JSON object containing every
// required section.
func (s *Synthesizer) Synthesize(ctx context.Context, ticker string, stock models.StockData,
	articles []models.Article, detailed []models.ArticleContent, videos []models.VideoCandidate) (models.Analysis, error) {

	prompt := buildPrompt(ticker, stock, articles, detailed, videos)
	s.logger.Printf("synthesizing analysis for %s (%d chars of prompt)", ticker, len(prompt))

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("completion failed: %w", err)
	}
	return parseAnalysis(raw)
}

func parseAnalysis(raw string) (models.Analysis, error) {
	cleaned, err := helpers.CleanLLMJSON(raw)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("no JSON object in response: %w", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return models.Analysis{}, fmt.Errorf("malformed analysis JSON: %w", err)
	}
	for _, f := range requiredAnalysisFields {
		v, ok := fields[f]
		if !ok {
			return models.Analysis{}, fmt.Errorf("analysis missing required field %q", f)
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			return models.Analysis{}, fmt.Errorf("analysis field %q is empty", f)
		}
	}

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return models.Analysis{}, fmt.Errorf("malformed analysis JSON: %w", err)
	}
	return analysis, nil
}

func buildPrompt(ticker string, stock models.StockData, articles []models.Article,
	detailed []models.ArticleContent, videos []models.VideoCandidate) string {

	recentPrices := map[string]float64{}
	history := stock.History
	if len(history) > promptPriceLimit {
		history = history[len(history)-promptPriceLimit:]
	}
	for _, p := range history {
		recentPrices[p.Date] = p.Close
	}

	type promptArticle struct {
		Headline string `json:"headline"`
		Summary  string `json:"summary"`
		Source   string `json:"source"`
		Time     string `json:"time"`
	}
	listed := make([]promptArticle, 0, promptArticleLimit)
	for _, a := range articles {
		if len(listed) == promptArticleLimit {
			break
		}
		listed = append(listed, promptArticle{
			Headline: a.Headline,
			Summary:  a.Summary,
			Source:   a.Source,
			Time:     a.PublishedAt,
		})
	}

	type promptContent struct {
		Headline string `json:"headline"`
		Content  string `json:"content"`
	}
	deepDives := make([]promptContent, 0, len(detailed))
	for _, d := range detailed {
		content := d.Content
		if len(content) > promptContentLimit {
			content = content[:promptContentLimit]
		}
		deepDives = append(deepDives, promptContent{Headline: d.Headline, Content: content})
	}

	type promptVideo struct {
		Title   string `json:"title"`
		Channel string `json:"channel"`
	}
	coverage := make([]promptVideo, 0, promptVideoLimit)
	for _, v := range videos {
		if len(coverage) == promptVideoLimit {
			break
		}
		coverage = append(coverage, promptVideo{Title: v.Title, Channel: v.Channel})
	}

	pricesJSON, _ := json.MarshalIndent(recentPrices, "", "  ")
	articlesJSON, _ := json.MarshalIndent(listed, "", "  ")
	deepDivesJSON, _ := json.MarshalIndent(deepDives, "", "  ")
	videosJSON, _ := json.MarshalIndent(coverage, "", "  ")

	return fmt.Sprintf(`You are a professional stock analyst. Analyze the following data for %s and provide a comprehensive market analysis.

Stock Information:
- Current Price: $%.2f
- Market Cap: $%.2fB
- Forward P/E: %.2f
- 52 Week Range: $%.2f - $%.2f

Recent Price History:
%s

Recent News Articles:
%s

Detailed Article Analysis:
%s

Recent YouTube Coverage:
%s

Format your response as a JSON object with these sections:
- summary: Brief overview of the stock's current state
- technical_analysis: Key technical indicators and patterns
- fundamental_analysis: Important fundamental factors
- news_sentiment: Analysis of recent news coverage
- risks: Potential risks and challenges
- opportunities: Growth opportunities and positive factors
- recommendation: Overall investment recommendation

Respond with the JSON object only.`,
		ticker,
		stock.CurrentPrice,
		stock.MarketCap/1e9,
		stock.ForwardPE,
		stock.FiftyTwoWeekLow,
		stock.FiftyTwoWeekHigh,
		pricesJSON,
		articlesJSON,
		deepDivesJSON,
		videosJSON,
	)
}
