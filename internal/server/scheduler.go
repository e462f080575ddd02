package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/tickerbrief/internal/report"
)

// Scheduler keeps watchlist reports warm by regenerating them on a
// cron cadence, so interactive requests hit a fresh cache.
type Scheduler struct {
	Factory  GeneratorFactory
	Tickers  []string
	CronSpec string
	Rdb      *redis.Client
	Logger   *log.Logger

	Stop chan struct{}

	lastRun time.Time
	nowFn   func() time.Time
}

const schedulerLockTTL = 2 * time.Minute

func NewScheduler(factory GeneratorFactory, tickers []string, cronSpec string, rdb *redis.Client) *Scheduler {
	return &Scheduler{
		Factory:  factory,
		Tickers:  tickers,
		CronSpec: cronSpec,
		Rdb:      rdb,
		Logger:   log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		Stop:     make(chan struct{}),
		nowFn:    time.Now,
	}
}

func (s *Scheduler) Start() {
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	now := s.nowFn()
	if !isDue(s.CronSpec, s.lastRun, now) {
		return
	}
	s.lastRun = now
	ctx := context.Background()

	for _, ticker := range s.Tickers {
		// Distributed lock so replicas don't refresh the same ticker twice.
		if s.Rdb != nil {
			lockKey := "tickerbrief:sched:lock:" + ticker
			ok, err := s.Rdb.SetNX(ctx, lockKey, "1", schedulerLockTTL).Result()
			if err != nil {
				s.Logger.Printf("lock for %s unavailable, refreshing anyway: %v", ticker, err)
			} else if !ok {
				continue
			}
		}
		go func(t string) {
			start := time.Now()
			if _, err := s.Factory().Generate(ctx, t, report.NopSink{}); err != nil {
				s.Logger.Printf("watchlist refresh failed for %s: %v", t, err)
				return
			}
			s.Logger.Printf("refreshed %s in %s", t, time.Since(start).Round(time.Millisecond))
		}(ticker)
	}
}

// isDue reports whether a refresh should fire at now given the cron
// expression and the last fire time. Supports "@hourly", "@daily" and
// 5-field expressions; an unparseable expression degrades to @hourly.
func isDue(cronSpec string, last, now time.Time) bool {
	switch cronSpec {
	case "@daily":
		return last.IsZero() || now.Sub(last) >= 24*time.Hour
	case "@hourly":
		return last.IsZero() || now.Sub(last) >= time.Hour
	}
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return last.IsZero() || now.Sub(last) >= time.Hour
	}
	if last.IsZero() {
		return true
	}
	return !expr.Next(last).After(now)
}
