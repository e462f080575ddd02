package scrape

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/tickerbrief/models"
)

// Renderer turns a URL into stabilized page HTML. The browser session
// manager implements it; tests supply canned documents.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

const (
	// Body text under this length alongside a subscribe control is
	// treated as a truncated paywall preview.
	paywallPreviewLength = 500
	// Minimum cleaned length a fallback selector match must reach to
	// count as article content rather than a snippet.
	contentMinLength = 200
)

// strategy is one step of the extraction chain. ok=true short-circuits
// the chain with the returned result (which may be a non-error outcome
// such as a paywall); ok=false means try the next strategy.
type strategy interface {
	name() string
	extract(doc *goquery.Document, html, pageURL string) (models.ArticleContent, bool)
}

// Extractor pulls full article content out of a rendered page by running
// an ordered chain of strategies. Extraction errors are recorded on the
// result and never propagated: one bad URL must not abort a batch.
type Extractor struct {
	renderer Renderer
	logger   *log.Logger
	chain    []strategy
	nowFn    func() time.Time
}

// NewExtractor builds an extractor with the default strategy chain:
// paywall detection, structured schema query, readability, generic
// selector scan.
func NewExtractor(renderer Renderer, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCRAPE] ", log.LstdFlags)
	}
	e := &Extractor{
		renderer: renderer,
		logger:   logger,
		nowFn:    time.Now,
	}
	e.chain = []strategy{
		paywallStrategy{},
		structuredStrategy{now: func() time.Time { return e.nowFn() }},
		readabilityStrategy{},
		selectorStrategy{},
	}
	return e
}

// Extract fetches url and returns its article content. Failures are
// converted to ArticleContent.Error.
func (e *Extractor) Extract(ctx context.Context, pageURL string) models.ArticleContent {
	e.logger.Printf("extracting article content from %s", pageURL)

	html, err := e.renderer.Render(ctx, pageURL)
	if err != nil {
		e.logger.Printf("render failed for %s: %v", pageURL, err)
		return models.ArticleContent{URL: pageURL, Error: err.Error()}
	}
	return e.ExtractFromHTML(html, pageURL)
}

// ExtractFromHTML runs the strategy chain over already-rendered HTML.
func (e *Extractor) ExtractFromHTML(html, pageURL string) models.ArticleContent {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ArticleContent{URL: pageURL, Error: err.Error()}
	}

	for _, s := range e.chain {
		if res, ok := s.extract(doc, html, pageURL); ok {
			res.URL = pageURL
			e.logger.Printf("strategy %q succeeded for %s (paywalled=%v, %d chars)",
				s.name(), pageURL, res.IsPaywalled, len(res.Content))
			return res
		}
	}

	return models.ArticleContent{URL: pageURL, Error: models.ErrNoContent.Error()}
}

// --- paywall detection ---

type paywallStrategy struct{}

func (paywallStrategy) name() string { return "paywall" }

var paywallMarkers = []string{
	"Subscribe to read",
	"Premium content",
	"Subscriber-only",
}

var paywallSelectors = []string{
	"div[class*='paywall']",
	"div[class*='subscribe']",
}

func (paywallStrategy) extract(doc *goquery.Document, _, _ string) (models.ArticleContent, bool) {
	if detectPaywall(doc) {
		return models.ArticleContent{
			IsPaywalled: true,
			Error:       "article is behind a paywall",
		}, true
	}
	return models.ArticleContent{}, false
}

func detectPaywall(doc *goquery.Document) bool {
	for _, sel := range paywallSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}

	for _, marker := range paywallMarkers {
		found := false
		doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(s.Text(), marker) {
				found = true
				return false
			}
			return true
		})
		if found {
			return true
		}
	}

	// Subscribe/sign-in control plus suspiciously short article text is
	// the usual shape of a truncated preview.
	controls := doc.Find("button, [role='button'], a[class*='button']").FilterFunction(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		return strings.EqualFold(t, "Subscribe") || strings.EqualFold(t, "Sign in") ||
			strings.HasPrefix(t, "Subscribe") || strings.HasPrefix(t, "Sign in")
	})
	if controls.Length() > 0 {
		body := CleanText(doc.Find("article").Text())
		if len(body) < paywallPreviewLength {
			return true
		}
	}
	return false
}

// --- structured schema query ---

type structuredStrategy struct {
	now func() time.Time
}

func (structuredStrategy) name() string { return "structured" }

func (s structuredStrategy) extract(doc *goquery.Document, _, _ string) (models.ArticleContent, bool) {
	headline := strings.TrimSpace(doc.Find("h1").First().Text())

	author := firstText(doc,
		"[rel='author']",
		"[itemprop='author']",
		".byline",
		"[class*='author']",
	)

	date := extractDate(doc)

	content := firstText(doc, "article")
	if content == "" {
		content = firstText(doc, "div[class*='article']", "div[class*='content']")
	}
	content = CleanText(content)
	if content == "" {
		return models.ArticleContent{}, false
	}

	return models.ArticleContent{
		Headline: headline,
		Author:   author,
		Date:     StandardizeDate(date, s.now()),
		Content:  content,
	}, true
}

func extractDate(doc *goquery.Document) string {
	t := doc.Find("time").First()
	if t.Length() > 0 {
		if dt, ok := t.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt)
		}
		return strings.TrimSpace(t.Text())
	}
	return firstText(doc, "[class*='timestamp']", "[class*='date']")
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := strings.TrimSpace(doc.Find(sel).First().Text()); s != "" {
			return s
		}
	}
	return ""
}

// --- readability ---

type readabilityStrategy struct{}

func (readabilityStrategy) name() string { return "readability" }

func (readabilityStrategy) extract(_ *goquery.Document, html, pageURL string) (models.ArticleContent, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return models.ArticleContent{}, false
	}
	content := CleanText(article.TextContent)
	if len(content) <= contentMinLength {
		return models.ArticleContent{}, false
	}
	return models.ArticleContent{
		Headline: strings.TrimSpace(article.Title),
		Author:   strings.TrimSpace(article.Byline),
		Content:  content,
	}, true
}

// --- generic selector scan ---

type selectorStrategy struct{}

func (selectorStrategy) name() string { return "selectors" }

// Ordered from most to least specific; the first whose cleaned text
// clears the anti-snippet threshold wins.
var fallbackSelectors = []string{
	"article",
	"div[class*='article-content']",
	"div[class*='story-content']",
	"div[class*='post-content']",
	"div[itemprop='articleBody']",
}

func (selectorStrategy) extract(doc *goquery.Document, _, _ string) (models.ArticleContent, bool) {
	for _, sel := range fallbackSelectors {
		content := CleanText(doc.Find(sel).First().Text())
		if len(content) > contentMinLength {
			return models.ArticleContent{Content: content}, true
		}
	}
	return models.ArticleContent{}, false
}
