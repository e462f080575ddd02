package main

import (
	"github.com/mohammad-safakhou/tickerbrief/config"
	"github.com/mohammad-safakhou/tickerbrief/internal/browser"
	"github.com/mohammad-safakhou/tickerbrief/internal/cache"
	"github.com/mohammad-safakhou/tickerbrief/internal/market"
	"github.com/mohammad-safakhou/tickerbrief/internal/news"
	"github.com/mohammad-safakhou/tickerbrief/internal/report"
	"github.com/mohammad-safakhou/tickerbrief/internal/scrape"
	"github.com/mohammad-safakhou/tickerbrief/internal/server"
	"github.com/mohammad-safakhou/tickerbrief/internal/video"
	"github.com/mohammad-safakhou/tickerbrief/models"
	openai "github.com/mohammad-safakhou/tickerbrief/provider/openai"
)

// newPipelineFactory wires the full dependency graph. The returned
// cleanup tears down the shared browser session.
func newPipelineFactory(cfg *config.Config, store cache.Store) (server.GeneratorFactory, func()) {
	mgr := browser.NewManager(browser.Options{
		Headless:       cfg.Browser.Headless,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		Timeout:        cfg.Browser.Timeout,
	}, nil)

	extractor := scrape.NewExtractor(mgr, nil)
	newsSource := news.NewSource(mgr, cfg.News.MaxRetries, nil)
	ranker := video.NewRanker(models.SearchMode(cfg.Video.SearchMode), cfg.Video.MaxResults, 0, nil)
	stocks := market.NewClient(0, nil)
	layer := cache.NewLayer(store, cfg.Cache.TTL, nil)
	llm := openai.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens, cfg.LLM.Timeout)
	synth := report.NewSynthesizer(llm, nil)

	factory := func() server.Generator {
		return report.NewPipeline(stocks, newsSource, ranker, extractor, layer, synth,
			cfg.News.DetailedArticles, nil)
	}
	cleanup := func() { mgr.Close() }
	return factory, cleanup
}
