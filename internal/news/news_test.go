package news

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/tickerbrief/models"
)

const yahooPage = `<html><body>
<div id="marketsNews">
  <ul>
    <li>
      <h3><a href="https://finance.yahoo.com/news/apple-surges">Apple stock surges on strong growth</a></h3>
      <p>Shares jumped after the company beat estimates across every segment.</p>
      <span class="caas-author">MarketWatch</span>
    </li>
    <li>
      <h3><a href="https://finance.yahoo.com/news/apple-outlook">Apple issues cautious outlook</a></h3>
      <p>Guidance points to a decline in hardware revenue next quarter.</p>
    </li>
  </ul>
</div>
</body></html>`

const reutersPage = `<html><body>
<ul>
  <li>
    <h3><a href="/markets/companies/apple-earnings">Apple reports quarterly earnings</a></h3>
    <p>Results came in ahead of analyst expectations.</p>
  </li>
</ul>
</body></html>`

// scriptedRenderer returns a canned response per URL substring.
type scriptedRenderer struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (r *scriptedRenderer) Render(_ context.Context, url string) (string, error) {
	r.calls = append(r.calls, url)
	for k, err := range r.errs {
		if strings.Contains(url, k) {
			return "", err
		}
	}
	for k, html := range r.pages {
		if strings.Contains(url, k) {
			return html, nil
		}
	}
	return "<html><body></body></html>", nil
}

func TestFetchLinksPrimaryProvider(t *testing.T) {
	r := &scriptedRenderer{pages: map[string]string{"finance.yahoo.com": yahooPage}}
	s := NewSource(r, 3, nil)
	s.nowFn = func() time.Time { return time.Date(2025, 2, 16, 12, 0, 0, 0, time.UTC) }

	articles, err := s.FetchLinks(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchLinks: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.Headline != "Apple stock surges on strong growth" {
		t.Errorf("unexpected headline: %q", first.Headline)
	}
	if first.Source != "MarketWatch" {
		t.Errorf("expected per-article source, got %q", first.Source)
	}
	if first.Sentiment != models.SentimentPositive {
		t.Errorf("expected positive sentiment, got %q", first.Sentiment)
	}
	if first.PublishedAt != "2025-02-16T12:00:00Z" {
		t.Errorf("unexpected published_at: %q", first.PublishedAt)
	}

	// Second article has no byline: source falls back to the provider.
	if articles[1].Source != "Yahoo Finance" {
		t.Errorf("expected provider fallback source, got %q", articles[1].Source)
	}
	if articles[1].Sentiment != models.SentimentNegative {
		t.Errorf("expected negative sentiment, got %q", articles[1].Sentiment)
	}

	if len(r.calls) != 1 {
		t.Errorf("fallback provider should not be queried, calls=%v", r.calls)
	}
}

func TestFetchLinksFallsBackToSecondary(t *testing.T) {
	r := &scriptedRenderer{pages: map[string]string{"reuters.com": reutersPage}}
	s := NewSource(r, 3, nil)

	articles, err := s.FetchLinks(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchLinks: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].Source != "Reuters" {
		t.Errorf("unexpected source: %q", articles[0].Source)
	}
	if !strings.HasPrefix(articles[0].URL, "https://www.reuters.com/") {
		t.Errorf("relative url not resolved: %q", articles[0].URL)
	}
}

func TestFetchLinksBothEmptyIsNotAnError(t *testing.T) {
	r := &scriptedRenderer{}
	s := NewSource(r, 3, nil)

	articles, err := s.FetchLinks(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("empty providers should not error: %v", err)
	}
	if len(articles) != 0 {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
	// Both providers queried exactly once: no retry without a navigation error.
	if len(r.calls) != 2 {
		t.Errorf("expected 2 render calls, got %v", r.calls)
	}
}

func TestFetchLinksRetriesOnNavigationError(t *testing.T) {
	r := &scriptedRenderer{errs: map[string]error{
		"finance.yahoo.com": context.DeadlineExceeded,
	}}
	s := NewSource(r, 2, nil)

	_, err := s.FetchLinks(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped navigation error, got %v", err)
	}
	if len(r.calls) != 2 {
		t.Errorf("expected one call per attempt, got %v", r.calls)
	}
}

func TestFetchLinksNonNavigationErrorSkipsProvider(t *testing.T) {
	r := &scriptedRenderer{
		errs:  map[string]error{"finance.yahoo.com": errors.New("tls handshake failure")},
		pages: map[string]string{"reuters.com": reutersPage},
	}
	s := NewSource(r, 3, nil)

	articles, err := s.FetchLinks(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchLinks: %v", err)
	}
	if len(articles) != 1 || articles[0].Source != "Reuters" {
		t.Fatalf("expected Reuters fallback, got %+v", articles)
	}
}

func TestClassifySentiment(t *testing.T) {
	cases := []struct {
		text string
		want models.Sentiment
	}{
		{"Apple stock surges on strong growth", models.SentimentPositive},
		{"Shares plunge as earnings miss expectations", models.SentimentNegative},
		{"Apple to hold developer conference in June", models.SentimentNeutral},
		{"Stock gains offset by weak guidance and a revenue drop", models.SentimentNegative},
		{"", models.SentimentNeutral},
	}
	for _, tc := range cases {
		if got := ClassifySentiment(tc.text); got != tc.want {
			t.Errorf("ClassifySentiment(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestTruncateSummary(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := truncateSummary(long)
	if len(got) != summaryMaxLength+3 {
		t.Fatalf("expected %d chars, got %d", summaryMaxLength+3, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-5:])
	}
	if short := truncateSummary("brief"); short != "brief" {
		t.Fatalf("short summaries must pass through, got %q", short)
	}
}
