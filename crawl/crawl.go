// CLAUDE:SUMMARY Visits product pages in a stealth Chrome tab, correlates their XHR responses through a capture session, and paces batches.
// Package crawl drives a browser through product and search pages and
// returns the correlated network captures of each visit.
package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/itemrelay/capture"
	"github.com/hazyhaar/itemrelay/crawl/internal/browser"
)

// Config configures the crawler and its browser.
type Config struct {
	// RemoteURL connects to a running Chrome instead of launching one.
	RemoteURL string `yaml:"remote_url"`
	Headful   bool   `yaml:"headful"`
	// BlockResources lists resource types not worth downloading
	// (images, fonts, media, stylesheets).
	BlockResources []string `yaml:"block_resources"`
	// CookiesFile is loaded on Start and written back on Close.
	CookiesFile string `yaml:"cookies_file"`

	// Timeout bounds one capture session. Default: capture.DefaultTimeout.
	Timeout time.Duration `yaml:"timeout"`
	// Retries is the number of extra visits after a capture timeout.
	Retries int `yaml:"retries"`
	// Pace is the minimum interval between two visits of a batch, and Jitter
	// the random extra wait added on top.
	Pace   time.Duration `yaml:"pace"`
	Jitter time.Duration `yaml:"jitter"`

	SearchURL string `yaml:"search_url"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = capture.DefaultTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.Pace <= 0 {
		c.Pace = 3 * time.Second
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.SearchURL == "" {
		c.SearchURL = "https://s.taobao.com/search?q="
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// tab is the slice of a browser tab a visit needs.
type tab interface {
	Listen(ctx context.Context, wants func(string) bool, deliver browser.Delivery) error
	Navigate(ctx context.Context, url string) error
	Close() error
}

type driver interface {
	open(ctx context.Context) (tab, error)
}

type rodDriver struct{ m *browser.Manager }

func (d rodDriver) open(ctx context.Context) (tab, error) {
	t, err := d.m.Open(ctx)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Crawler visits pages one tab at a time. Visit is safe for concurrent use;
// each call gets its own tab and session.
type Crawler struct {
	cfg     Config
	mgr     *browser.Manager
	drv     driver
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New returns a Crawler. Call Start before visiting.
func New(cfg Config) (*Crawler, error) {
	cfg.defaults()
	mgr, err := browser.NewManager(browser.Config{
		RemoteURL: cfg.RemoteURL,
		Headful:   cfg.Headful,
		Block:     cfg.BlockResources,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}
	return newCrawler(cfg, mgr, rodDriver{m: mgr}), nil
}

func newCrawler(cfg Config, mgr *browser.Manager, drv driver) *Crawler {
	cfg.defaults()
	return &Crawler{
		cfg:     cfg,
		mgr:     mgr,
		drv:     drv,
		limiter: rate.NewLimiter(rate.Every(cfg.Pace), 1),
		logger:  cfg.Logger,
	}
}

// Start launches the browser and installs saved cookies.
func (c *Crawler) Start(ctx context.Context) error {
	if c.mgr == nil {
		return nil
	}
	if err := c.mgr.Start(ctx); err != nil {
		return err
	}
	if c.cfg.CookiesFile != "" {
		n, err := c.mgr.LoadCookies(ctx, c.cfg.CookiesFile)
		if err != nil {
			return err
		}
		c.logger.Info("crawl: cookies loaded", "count", n, "file", c.cfg.CookiesFile)
	}
	return nil
}

// Close saves cookies, when configured, and shuts the browser down.
func (c *Crawler) Close() error {
	if c.mgr == nil {
		return nil
	}
	if c.cfg.CookiesFile != "" && c.mgr.Started() {
		if _, err := c.mgr.SaveCookies(context.Background(), c.cfg.CookiesFile); err != nil {
			c.logger.Warn("crawl: save cookies", "error", err)
		}
	}
	return c.mgr.Close()
}

// ExportCookies writes the browser's cookies to path.
func (c *Crawler) ExportCookies(ctx context.Context, path string) (int, error) {
	if c.mgr == nil {
		return 0, errors.New("crawl: no browser")
	}
	return c.mgr.SaveCookies(ctx, path)
}

// Visit opens url in a fresh tab and waits for every channel of rules. A
// capture timeout is retried up to Config.Retries times; attempts reports
// how many visits were made.
func (c *Crawler) Visit(ctx context.Context, pageURL string, rules []capture.Rule) (capture.Capture, int, error) {
	m := capture.NewMatcher(rules)
	for attempt := 1; ; attempt++ {
		got, err := c.visitOnce(ctx, pageURL, m)
		if err == nil {
			return got, attempt, nil
		}
		if !errors.Is(err, capture.ErrTimeout) || attempt > c.cfg.Retries {
			return nil, attempt, err
		}
		c.logger.Warn("crawl: capture timed out, retrying", "url", pageURL, "attempt", attempt, "error", err)
	}
}

func (c *Crawler) visitOnce(ctx context.Context, pageURL string, m *capture.Matcher) (capture.Capture, error) {
	t, err := c.drv.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("crawl: open tab: %w", err)
	}
	defer t.Close()

	sess := capture.NewSession(m, capture.WithTimeout(c.cfg.Timeout), capture.WithLogger(c.logger))
	deliver := func(u string, status int, body []byte) {
		sess.Offer(capture.Response{URL: u, Status: status, Body: body})
	}
	if err := t.Listen(ctx, m.Wants, deliver); err != nil {
		return nil, fmt.Errorf("crawl: listen: %w", err)
	}
	if err := t.Navigate(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}
	return sess.Await(ctx)
}

// Result is the outcome of one visit of a batch.
type Result struct {
	URL      string
	Capture  capture.Capture
	Attempts int
	Err      error
}

// Stats counts batch outcomes.
type Stats struct {
	OK       int
	TimedOut int
	Failed   int
}

// Run visits urls in order with product rules, pacing visits by Config.Pace
// plus a random jitter. fn sees every result, failed or not; a visit failure
// never stops the batch, an error returned by fn does.
func (c *Crawler) Run(ctx context.Context, urls []string, fn func(context.Context, Result) error) (Stats, error) {
	var st Stats
	for i, u := range urls {
		if err := c.pace(ctx); err != nil {
			return st, err
		}

		got, attempts, err := c.Visit(ctx, u, capture.ProductRules())
		switch {
		case err == nil:
			st.OK++
		case errors.Is(err, capture.ErrAborted):
			return st, err
		case errors.Is(err, capture.ErrTimeout):
			st.TimedOut++
		default:
			st.Failed++
		}
		if err != nil {
			c.logger.Warn("crawl: visit failed", "url", u, "attempts", attempts, "error", err)
		} else {
			c.logger.Info("crawl: visit captured", "url", u, "attempts", attempts, "n", i+1, "of", len(urls))
		}

		if ferr := fn(ctx, Result{URL: u, Capture: got, Attempts: attempts, Err: err}); ferr != nil {
			return st, ferr
		}
	}
	return st, nil
}

func (c *Crawler) pace(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.cfg.Jitter <= 0 {
		return nil
	}
	t := time.NewTimer(rand.N(c.cfg.Jitter))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Search opens the search page for keyword and returns the decoded search
// results body.
func (c *Crawler) Search(ctx context.Context, keyword string) (json.RawMessage, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	got, _, err := c.Visit(ctx, c.cfg.SearchURL+url.QueryEscape(keyword), capture.SearchRules())
	if err != nil {
		return nil, err
	}
	return got[capture.ChannelSearch], nil
}
