package models

import (
	"errors"
	"time"
)

// ErrCacheMiss is returned when a cache lookup finds nothing fresh.
var ErrCacheMiss = errors.New("cache miss")

// ErrNoContent is returned when no extraction strategy produced content.
var ErrNoContent = errors.New("could not extract content with any method")

// Sentiment labels attached to articles by keyword scoring.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Article is a normalized news listing entry. Immutable once produced.
type Article struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt string    `json:"published_at"` // ISO-8601
	Sentiment   Sentiment `json:"sentiment"`
}

// ArticleContent is the outcome of a full-content extraction attempt.
// Content is empty iff the article was paywalled or extraction failed;
// on failure paths exactly one of Content/Error carries meaning.
type ArticleContent struct {
	URL         string `json:"url"`
	IsPaywalled bool   `json:"is_paywalled"`
	Headline    string `json:"headline,omitempty"`
	Author      string `json:"author,omitempty"`
	Date        string `json:"date,omitempty"`
	Content     string `json:"content"`
	Error       string `json:"error,omitempty"`
}

// VideoCandidate holds both the raw human-readable fields and their
// parsed forms. Score is recomputed per ranking call, never cached.
type VideoCandidate struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	Channel     string    `json:"channel"`
	Views       string    `json:"views"`
	ViewCount   int64     `json:"view_count"`
	Duration    string    `json:"duration"`
	DurationSec int       `json:"duration_seconds"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score"`
}

// SearchMode selects the weighting table used when scoring videos.
type SearchMode string

const (
	ModeRecent   SearchMode = "recent"
	ModeRelevant SearchMode = "relevant"
	ModePopular  SearchMode = "popular"
	ModeBalanced SearchMode = "balanced"
)

// PricePoint is one daily close from the price history.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// StockData is the market snapshot for a ticker.
type StockData struct {
	Ticker           string       `json:"ticker"`
	CurrentPrice     float64      `json:"current_price"`
	MarketCap        float64      `json:"market_cap"`
	ForwardPE        float64      `json:"forward_pe"`
	FiftyTwoWeekLow  float64      `json:"fifty_two_week_low"`
	FiftyTwoWeekHigh float64      `json:"fifty_two_week_high"`
	History          []PricePoint `json:"history"`
}

// Analysis is the synthesized narrative. All fields are required in the
// LLM response; a response missing any of them is a synthesis failure.
type Analysis struct {
	Summary             string `json:"summary"`
	TechnicalAnalysis   string `json:"technical_analysis"`
	FundamentalAnalysis string `json:"fundamental_analysis"`
	NewsSentiment       string `json:"news_sentiment"`
	Risks               string `json:"risks"`
	Opportunities       string `json:"opportunities"`
	Recommendation      string `json:"recommendation"`
}

// Report is the unit that is cached and returned to callers.
// Immutable once constructed.
type Report struct {
	Ticker    string           `json:"ticker"`
	Timestamp string           `json:"timestamp"`
	StockData StockData        `json:"stock_data"`
	Articles  []Article        `json:"articles"`
	Videos    []VideoCandidate `json:"videos"`
	Analysis  Analysis         `json:"analysis"`
}

// EventType identifies a pipeline progress event.
type EventType string

const (
	EventStockData EventType = "stock_data"
	EventNews      EventType = "news_article"
	EventVideo     EventType = "youtube_video"
	EventAnalysis  EventType = "analysis"
	EventError     EventType = "error"
)

// ProgressEvent is a discrete notification emitted mid-pipeline.
// Consumed at most once by a stream reader; never persisted.
type ProgressEvent struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	Sequence  uint64      `json:"sequence"`
}

// Cache collections. Each pipeline stage caches under its own collection,
// keyed by ticker.
const (
	CollectionStockData = "stock_data"
	CollectionNews      = "news_articles"
	CollectionVideos    = "youtube_videos"
	CollectionAnalysis  = "analysis"
)
