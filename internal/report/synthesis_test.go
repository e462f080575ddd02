package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/tickerbrief/models"
)

const validAnalysisJSON = `{
  "summary": "Stable quarter.",
  "technical_analysis": "Holding above the 50-day average.",
  "fundamental_analysis": "Revenue growth intact.",
  "news_sentiment": "Mostly positive coverage.",
  "risks": "Regulatory pressure.",
  "opportunities": "Services expansion.",
  "recommendation": "Hold."
}`

type fakeCompleter struct {
	response string
	err      error
	prompt   string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func TestSynthesizeParsesFencedResponse(t *testing.T) {
	llm := &fakeCompleter{response: "Here you go:\n```json\n" + validAnalysisJSON + "\n```"}
	s := NewSynthesizer(llm, nil)

	analysis, err := s.Synthesize(context.Background(), "AAPL", models.StockData{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if analysis.Summary != "Stable quarter." {
		t.Errorf("unexpected summary: %q", analysis.Summary)
	}
	if analysis.Recommendation != "Hold." {
		t.Errorf("unexpected recommendation: %q", analysis.Recommendation)
	}
}

func TestSynthesizeRejectsMissingField(t *testing.T) {
	incomplete := strings.Replace(validAnalysisJSON, `"recommendation": "Hold."`, `"extra": "x"`, 1)
	s := NewSynthesizer(&fakeCompleter{response: incomplete}, nil)

	_, err := s.Synthesize(context.Background(), "AAPL", models.StockData{}, nil, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "recommendation") {
		t.Fatalf("expected missing-field error, got %v", err)
	}
}

func TestSynthesizeRejectsEmptyField(t *testing.T) {
	empty := strings.Replace(validAnalysisJSON, `"risks": "Regulatory pressure."`, `"risks": "  "`, 1)
	s := NewSynthesizer(&fakeCompleter{response: empty}, nil)

	if _, err := s.Synthesize(context.Background(), "AAPL", models.StockData{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for empty field")
	}
}

func TestSynthesizeRejectsNonJSON(t *testing.T) {
	s := NewSynthesizer(&fakeCompleter{response: "I cannot analyze this stock."}, nil)
	if _, err := s.Synthesize(context.Background(), "AAPL", models.StockData{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for prose response")
	}
}

func TestSynthesizePropagatesCompletionError(t *testing.T) {
	wantErr := errors.New("rate limited")
	s := NewSynthesizer(&fakeCompleter{err: wantErr}, nil)
	if _, err := s.Synthesize(context.Background(), "AAPL", models.StockData{}, nil, nil, nil); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped completion error, got %v", err)
	}
}

func TestBuildPromptTruncatesAndLimits(t *testing.T) {
	stock := models.StockData{
		CurrentPrice:     245.5,
		MarketCap:        3.7e12,
		ForwardPE:        29.8,
		FiftyTwoWeekLow:  164.08,
		FiftyTwoWeekHigh: 260.1,
	}
	articles := make([]models.Article, 8)
	for i := range articles {
		articles[i] = models.Article{Headline: "headline", Summary: "summary"}
	}
	detailed := []models.ArticleContent{{
		Headline: "deep dive",
		Content:  strings.Repeat("x", 2000),
	}}

	prompt := buildPrompt("AAPL", stock, articles, detailed, nil)

	if !strings.Contains(prompt, "$3700.00B") {
		t.Errorf("market cap not rendered in billions:\n%s", prompt)
	}
	if strings.Contains(prompt, strings.Repeat("x", 1001)) {
		t.Error("detailed content not truncated to 1000 chars")
	}
	if got := strings.Count(prompt, `"headline": "headline"`); got != promptArticleLimit {
		t.Errorf("expected %d listed articles in prompt, got %d", promptArticleLimit, got)
	}
	if !strings.Contains(prompt, "recommendation") {
		t.Error("prompt missing response contract")
	}
}
