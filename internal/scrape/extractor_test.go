package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeRenderer struct {
	html string
	err  error
}

func (f fakeRenderer) Render(_ context.Context, _ string) (string, error) {
	return f.html, f.err
}

func longBody(n int) string {
	return strings.TrimSpace(strings.Repeat("Solid quarterly results lifted the stock. ", n))
}

func TestExtractStructuredContent(t *testing.T) {
	html := fmt.Sprintf(`<html><body>
		<h1>Apple beats expectations</h1>
		<span class="author-name">By Jane Doe</span>
		<time datetime="2025-02-15">Feb 15, 2025</time>
		<article>%s</article>
	</body></html>`, longBody(10))

	e := NewExtractor(fakeRenderer{html: html}, nil)
	got := e.Extract(context.Background(), "https://example.com/apple")

	if got.Error != "" {
		t.Fatalf("unexpected error: %s", got.Error)
	}
	if got.IsPaywalled {
		t.Fatal("article should not be paywalled")
	}
	if got.Headline != "Apple beats expectations" {
		t.Errorf("unexpected headline: %q", got.Headline)
	}
	if !strings.HasPrefix(got.Date, "2025-02-15") {
		t.Errorf("unexpected date: %q", got.Date)
	}
	if !strings.Contains(got.Content, "Solid quarterly results") {
		t.Errorf("unexpected content: %q", got.Content)
	}
}

func TestExtractPaywallMarker(t *testing.T) {
	html := `<html><body><div class="paywall-banner">Subscribe to read</div><article>Short preview.</article></body></html>`
	e := NewExtractor(fakeRenderer{html: html}, nil)
	got := e.Extract(context.Background(), "https://example.com/pw")

	if !got.IsPaywalled {
		t.Fatal("expected paywall detection")
	}
	if got.Content != "" {
		t.Errorf("paywalled article must have empty content, got %q", got.Content)
	}
}

func TestExtractPaywallShortPreviewHeuristic(t *testing.T) {
	// Subscribe control plus a short article body: paywalled.
	html := `<html><body>
		<button>Subscribe</button>
		<article>Only a teaser paragraph here.</article>
	</body></html>`
	e := NewExtractor(fakeRenderer{html: html}, nil)
	if got := e.Extract(context.Background(), "https://example.com/a"); !got.IsPaywalled {
		t.Fatal("short preview with subscribe control should be paywalled")
	}

	// Same page shape with a long body and no subscribe control: not paywalled.
	html = fmt.Sprintf(`<html><body><article>%s</article></body></html>`, longBody(15))
	e = NewExtractor(fakeRenderer{html: html}, nil)
	got := e.Extract(context.Background(), "https://example.com/b")
	if got.IsPaywalled {
		t.Fatal("long article without subscribe control should not be paywalled")
	}
	if got.Content == "" {
		t.Fatal("expected content extraction to succeed")
	}
}

func TestExtractFallsBackWhenNoStructuredMatch(t *testing.T) {
	// No article element and no article/content class for the structured
	// pass; content lives in a container only the later strategies reach.
	html := fmt.Sprintf(`<html><body>
		<div itemprop="articleBody">%s</div>
	</body></html>`, longBody(10))

	e := NewExtractor(fakeRenderer{html: html}, nil)
	got := e.Extract(context.Background(), "https://example.com/c")
	if got.Error != "" {
		t.Fatalf("unexpected error: %s", got.Error)
	}
	if !strings.Contains(got.Content, "Solid quarterly results") {
		t.Errorf("fallback selectors did not find content: %q", got.Content)
	}
}

func TestExtractSnippetTooShortFails(t *testing.T) {
	html := `<html><body><p>Tiny snippet.</p></body></html>`
	e := NewExtractor(fakeRenderer{html: html}, nil)
	got := e.Extract(context.Background(), "https://example.com/d")
	if got.Error == "" {
		t.Fatal("expected extraction failure for sub-threshold content")
	}
	if got.Content != "" {
		t.Errorf("failed extraction must leave content empty, got %q", got.Content)
	}
}

func TestExtractRenderErrorIsRecordedNotPropagated(t *testing.T) {
	e := NewExtractor(fakeRenderer{err: errors.New("navigation timeout")}, nil)
	got := e.Extract(context.Background(), "https://example.com/e")
	if got.Error == "" {
		t.Fatal("expected error recorded on result")
	}
	if got.URL != "https://example.com/e" {
		t.Errorf("result should carry the url, got %q", got.URL)
	}
}
