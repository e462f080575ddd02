package report

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/tickerbrief/models"
)

// State is the pipeline's current stage, for logging and diagnostics.
type State string

const (
	StatePending       State = "PENDING"
	StateFetchingStock State = "FETCHING_STOCK"
	StateFetchingNews  State = "FETCHING_NEWS"
	StateFetchingVideo State = "FETCHING_VIDEO"
	StateSynthesizing  State = "SYNTHESIZING"
	StateDone          State = "DONE"
	StateError         State = "ERROR"
)

var tickerRe = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// ErrInvalidTicker rejects malformed ticker symbols at the boundary.
var ErrInvalidTicker = fmt.Errorf("invalid ticker symbol")

// StockFetcher supplies the market snapshot.
type StockFetcher interface {
	Fetch(ctx context.Context, ticker string) (models.StockData, error)
}

// NewsFetcher supplies the article listing.
type NewsFetcher interface {
	FetchLinks(ctx context.Context, ticker string) ([]models.Article, error)
}

// VideoFetcher supplies ranked video candidates.
type VideoFetcher interface {
	Fetch(ctx context.Context, ticker string) ([]models.VideoCandidate, error)
}

// ArticleExtractor pulls full content for one article URL.
type ArticleExtractor interface {
	Extract(ctx context.Context, url string) models.ArticleContent
}

// Cache is the TTL store the pipeline reads and writes per stage.
type Cache interface {
	Get(ctx context.Context, collection, ticker string, out interface{}) error
	Set(ctx context.Context, collection, ticker string, value interface{}) error
}

// Pipeline coordinates the fetch stages, the synthesis step and the
// per-stage cache, emitting progress events along the way.
//
// Failure policy: news and video failures degrade to empty lists;
// stock-data and synthesis failures fail the whole request, and no
// report is cached on a failed request.
type Pipeline struct {
	stock     StockFetcher
	news      NewsFetcher
	videos    VideoFetcher
	extractor ArticleExtractor
	cache     Cache
	synth     *Synthesizer
	logger    *log.Logger

	// How many top articles get a full-content pass.
	detailedArticles int
	nowFn            func() time.Time

	mu    sync.Mutex
	state State
}

func NewPipeline(stock StockFetcher, news NewsFetcher, videos VideoFetcher,
	extractor ArticleExtractor, cache Cache, synth *Synthesizer, detailedArticles int, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[REPORT] ", log.LstdFlags)
	}
	if detailedArticles <= 0 {
		detailedArticles = 3
	}
	return &Pipeline{
		stock:            stock,
		news:             news,
		videos:           videos,
		extractor:        extractor,
		cache:            cache,
		synth:            synth,
		logger:           logger,
		detailedArticles: detailedArticles,
		nowFn:            time.Now,
		state:            StatePending,
	}
}

// State reports the current stage.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.logger.Printf("state: %s", s)
}

// Generate produces a full report for ticker, emitting progress to
// sink. A fresh cached report short-circuits the whole pipeline.
func (p *Pipeline) Generate(ctx context.Context, ticker string, sink Sink) (models.Report, error) {
	if sink == nil {
		sink = NopSink{}
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerRe.MatchString(ticker) {
		return models.Report{}, ErrInvalidTicker
	}
	p.setState(StatePending)

	var cached models.Report
	if err := p.cache.Get(ctx, models.CollectionAnalysis, ticker, &cached); err == nil {
		p.logger.Printf("serving cached report for %s", ticker)
		sink.Emit(models.EventAnalysis, cached)
		p.setState(StateDone)
		return cached, nil
	}

	p.setState(StateFetchingStock)
	stock, err := p.stock.Fetch(ctx, ticker)
	if err != nil {
		p.setState(StateError)
		sink.Emit(models.EventError, map[string]string{"ticker": ticker, "message": err.Error()})
		return models.Report{}, fmt.Errorf("stock data fetch failed: %w", err)
	}
	if err := p.cache.Set(ctx, models.CollectionStockData, ticker, stock); err != nil {
		p.logger.Printf("stock cache write failed: %v", err)
	}
	sink.Emit(models.EventStockData, stock)

	// News and video fetches are independent; run them together. Either
	// failing degrades to an empty list rather than failing the report.
	var (
		wg       sync.WaitGroup
		articles []models.Article
		videos   []models.VideoCandidate
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.setState(StateFetchingNews)
		got, err := p.news.FetchLinks(ctx, ticker)
		if err != nil {
			p.logger.Printf("news fetch failed, continuing without articles: %v", err)
			return
		}
		articles = got
	}()
	go func() {
		defer wg.Done()
		p.setState(StateFetchingVideo)
		got, err := p.videos.Fetch(ctx, ticker)
		if err != nil {
			p.logger.Printf("video fetch failed, continuing without videos: %v", err)
			return
		}
		videos = got
	}()
	wg.Wait()

	if articles == nil {
		articles = []models.Article{}
	}
	if videos == nil {
		videos = []models.VideoCandidate{}
	}

	if len(articles) > 0 {
		if err := p.cache.Set(ctx, models.CollectionNews, ticker, articles); err != nil {
			p.logger.Printf("news cache write failed: %v", err)
		}
	}
	if len(videos) > 0 {
		if err := p.cache.Set(ctx, models.CollectionVideos, ticker, videos); err != nil {
			p.logger.Printf("video cache write failed: %v", err)
		}
	}
	for _, a := range articles {
		sink.Emit(models.EventNews, a)
	}
	for _, v := range videos {
		sink.Emit(models.EventVideo, v)
	}

	detailed := p.extractDetailed(ctx, articles)

	p.setState(StateSynthesizing)
	analysis, err := p.synth.Synthesize(ctx, ticker, stock, articles, detailed, videos)
	if err != nil {
		p.setState(StateError)
		sink.Emit(models.EventError, map[string]string{"ticker": ticker, "message": err.Error()})
		return models.Report{}, fmt.Errorf("synthesis failed: %w", err)
	}

	rep := models.Report{
		Ticker:    ticker,
		Timestamp: p.nowFn().Format(time.RFC3339),
		StockData: stock,
		Articles:  articles,
		Videos:    videos,
		Analysis:  analysis,
	}
	if err := p.cache.Set(ctx, models.CollectionAnalysis, ticker, rep); err != nil {
		p.logger.Printf("report cache write failed: %v", err)
	}
	sink.Emit(models.EventAnalysis, rep)
	p.setState(StateDone)
	return rep, nil
}

// extractDetailed runs the full-content pass over the top articles.
// Paywalled or failed extractions are skipped; headlines fall back to
// the listing's when the page yields none.
func (p *Pipeline) extractDetailed(ctx context.Context, articles []models.Article) []models.ArticleContent {
	var out []models.ArticleContent
	for i, a := range articles {
		if i == p.detailedArticles {
			break
		}
		content := p.extractor.Extract(ctx, a.URL)
		if content.Error != "" || content.IsPaywalled || content.Content == "" {
			p.logger.Printf("skipping detailed content for %s (paywalled=%v, err=%q)",
				a.URL, content.IsPaywalled, content.Error)
			continue
		}
		if content.Headline == "" {
			content.Headline = a.Headline
		}
		out = append(out, content)
	}
	return out
}
