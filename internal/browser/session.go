package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Options configures the shared headless browser.
type Options struct {
	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Timeout        time.Duration
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1920
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 1080
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// closeGrace lets in-flight CDP operations settle before a tab is torn down.
const closeGrace = 500 * time.Millisecond

// Manager owns the process-wide browser instance. The engine is launched
// lazily on first use, guarded so that concurrent callers observe at most
// one instance. After Close the manager can be reused; the next call
// launches a fresh engine.
type Manager struct {
	opts   Options
	logger *log.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewManager returns an unstarted manager. The browser launches on the
// first WithPage call.
func NewManager(opts Options, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.Writer(), "[BROWSER] ", log.LstdFlags)
	}
	return &Manager{opts: opts.withDefaults(), logger: logger}
}

// ensureStarted launches the allocator and browser once. Idempotent.
func (m *Manager) ensureStarted() (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browserCtx != nil {
		return m.browserCtx, nil
	}

	m.logger.Printf("launching browser (headless=%v)", m.opts.Headless)
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.opts.Headless),
		chromedp.NoSandbox,
		chromedp.UserAgent(m.opts.UserAgent),
		chromedp.WindowSize(m.opts.ViewportWidth, m.opts.ViewportHeight),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so a launch failure surfaces here
	// rather than inside the first page operation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	m.allocCancel = allocCancel
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	return m.browserCtx, nil
}

// WithPage runs fn against a fresh tab with the manager's operation
// timeout applied. The tab is released on every exit path, after a short
// grace delay so in-flight operations can settle.
func (m *Manager) WithPage(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	browserCtx, err := m.ensureStarted()
	if err != nil {
		return err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer func() {
		time.Sleep(closeGrace)
		tabCancel()
	}()

	opCtx, opCancel := context.WithTimeout(tabCtx, m.opts.Timeout)
	defer opCancel()

	// Honor caller cancellation alongside the tab's own lifetime.
	stop := context.AfterFunc(ctx, opCancel)
	defer stop()

	return fn(opCtx)
}

// Render navigates to url in a scoped page and returns the page HTML once
// the DOM is ready.
func (m *Manager) Render(ctx context.Context, url string) (string, error) {
	var html string
	err := m.WithPage(ctx, func(pageCtx context.Context) error {
		return chromedp.Run(pageCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

// Close tears down the browser and resets the manager so a subsequent use
// starts clean. Safe to call when never started and safe to call twice;
// teardown failures are logged, never propagated, so cleanup cannot mask
// an original error.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browserCtx == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Printf("browser teardown panic suppressed: %v", r)
		}
	}()
	m.logger.Printf("closing browser")
	m.browserCancel()
	m.allocCancel()
	m.browserCtx = nil
	m.browserCancel = nil
	m.allocCancel = nil
}

// IsNavigationError reports whether err is a transient navigation-class
// failure (timeout or closed target) that warrants a retry.
func IsNavigationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "browser closed") ||
		strings.Contains(msg, "context canceled")
}
