package news

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mohammad-safakhou/tickerbrief/internal/browser"
	"github.com/mohammad-safakhou/tickerbrief/internal/scrape"
	"github.com/mohammad-safakhou/tickerbrief/models"
)

const (
	summaryMaxLength = 200
	retryBackoff     = time.Second
)

// provider is one news site: where to look for a ticker and how to read
// the listing out of its rendered page.
type provider struct {
	name     string
	queryURL func(ticker string) string
	parse    func(doc *goquery.Document) []rawArticle
}

type rawArticle struct {
	title       string
	url         string
	description string
	source      string
}

// Source fetches article listings for a ticker, falling back across
// providers and retrying the whole sequence on navigation-class errors.
type Source struct {
	renderer   scrape.Renderer
	logger     *log.Logger
	maxRetries int
	providers  []provider
	nowFn      func() time.Time
}

// NewSource builds a source with the default provider chain: Yahoo
// Finance first, Reuters as fallback.
func NewSource(renderer scrape.Renderer, maxRetries int, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.New(log.Writer(), "[NEWS] ", log.LstdFlags)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Source{
		renderer:   renderer,
		logger:     logger,
		maxRetries: maxRetries,
		nowFn:      time.Now,
		providers: []provider{
			{
				name:     "Yahoo Finance",
				queryURL: func(t string) string { return fmt.Sprintf("https://finance.yahoo.com/quote/%s/news", t) },
				parse:    parseYahoo,
			},
			{
				name:     "Reuters",
				queryURL: func(t string) string { return fmt.Sprintf("https://www.reuters.com/markets/companies/%s.O", t) },
				parse:    parseReuters,
			},
		},
	}
}

// FetchLinks returns normalized articles for ticker. A provider that
// renders but yields nothing is treated as empty and the next provider is
// tried; navigation failures retry the whole provider sequence with a
// fixed backoff. Exhausted retries return the last navigation error.
func (s *Source) FetchLinks(ctx context.Context, ticker string) ([]models.Article, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		raw, name, err := s.tryProviders(ctx, ticker)
		if err != nil {
			lastErr = err
			s.logger.Printf("navigation error on attempt %d: %v", attempt+1, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
			continue
		}
		return s.normalize(raw, name), nil
	}
	return nil, fmt.Errorf("news fetch failed after %d attempts: %w", s.maxRetries, lastErr)
}

// tryProviders runs the provider chain once. Only navigation-class
// errors propagate; anything else counts as "this provider produced
// nothing".
func (s *Source) tryProviders(ctx context.Context, ticker string) ([]rawArticle, string, error) {
	for i, p := range s.providers {
		html, err := s.renderer.Render(ctx, p.queryURL(ticker))
		if err != nil {
			if browser.IsNavigationError(err) {
				return nil, "", err
			}
			s.logger.Printf("%s query failed: %v", p.name, err)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			s.logger.Printf("%s parse failed: %v", p.name, err)
			continue
		}
		raw := p.parse(doc)
		if len(raw) > 0 {
			s.logger.Printf("retrieved %d articles from %s", len(raw), p.name)
			return raw, p.name, nil
		}
		if i < len(s.providers)-1 {
			s.logger.Printf("%s produced nothing, trying %s", p.name, s.providers[i+1].name)
		}
	}
	return nil, "", nil
}

func (s *Source) normalize(raw []rawArticle, providerName string) []models.Article {
	articles := make([]models.Article, 0, len(raw))
	now := s.nowFn().Format(time.RFC3339)
	for _, r := range raw {
		source := r.source
		if source == "" {
			source = providerName
		}
		articles = append(articles, models.Article{
			Headline:    r.title,
			Summary:     truncateSummary(r.description),
			URL:         r.url,
			Source:      source,
			PublishedAt: now,
			Sentiment:   ClassifySentiment(r.title + " " + r.description),
		})
	}
	return articles
}

func truncateSummary(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= summaryMaxLength {
		return s
	}
	return s[:summaryMaxLength] + "..."
}

// --- sentiment ---

var positiveWords = []string{
	"rise", "gain", "up", "growth", "positive", "bullish", "surge", "jump", "strong", "beat",
}

var negativeWords = []string{
	"fall", "drop", "down", "decline", "negative", "bearish", "plunge", "weak", "miss", "loss",
}

// ClassifySentiment does case-insensitive keyword scoring over text:
// the label is the majority word set, ties (including zero/zero) are
// neutral.
func ClassifySentiment(text string) models.Sentiment {
	lower := strings.ToLower(text)
	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// --- provider parsers ---

// parseYahoo reads the quote-page news module: items live under the
// marketsNews section, one h3 per article.
func parseYahoo(doc *goquery.Document) []rawArticle {
	section := doc.Find("#marketsNews")
	if section.Length() == 0 {
		return nil
	}
	var out []rawArticle
	section.Find("h3").Each(func(_ int, h *goquery.Selection) {
		item := h.Closest("li")
		if item.Length() == 0 {
			item = h.Parent()
		}
		link := h.Find("a").First()
		if link.Length() == 0 {
			link = item.Find("a").First()
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		title := scrape.CleanText(h.Text())
		if href == "" || title == "" {
			return
		}
		out = append(out, rawArticle{
			title:       title,
			url:         href,
			description: scrape.CleanText(item.Find("p").First().Text()),
			source:      scrape.CleanText(item.Find("span.caas-author").First().Text()),
		})
	})
	return out
}

// parseReuters reads the company page listing. Relative links are made
// absolute against the Reuters origin.
func parseReuters(doc *goquery.Document) []rawArticle {
	var out []rawArticle
	doc.Find("h3").Each(func(_ int, h *goquery.Selection) {
		item := h.Closest("li")
		if item.Length() == 0 {
			item = h.Parent()
		}
		link := h.Find("a").First()
		if link.Length() == 0 {
			link = item.Find("a").First()
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		title := scrape.CleanText(h.Text())
		if href == "" || title == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = "https://www.reuters.com" + href
		}
		out = append(out, rawArticle{
			title:       title,
			url:         href,
			description: scrape.CleanText(item.Find("p").First().Text()),
			source:      "Reuters",
		})
	})
	return out
}
