// CLAUDE:SUMMARY Chrome lifecycle for crawling: launch or remote connect, optional Xvfb, time-based recycling between visits.
// Package browser drives the Chrome instance used to visit product pages:
// launch or connect via Rod, open stealth tabs, listen to network traffic,
// and persist the login session's cookies.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

var (
	ErrClosed     = errors.New("browser: manager is closed")
	ErrNotStarted = errors.New("browser: not started")
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a Chrome the operator
	// logged in with. Empty launches a local Chrome.
	RemoteURL string

	// Headful runs a visible Chrome on an Xvfb display. The marketplace
	// serves fewer challenges to headful sessions.
	Headful     bool
	XvfbDisplay string // default ":99"

	// Block lists resource types never fetched: images, fonts, media, stylesheets.
	Block []string

	// RecycleInterval bounds the lifetime of a launched Chrome. It is
	// checked whenever a tab is opened. Default 2h.
	RecycleInterval time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 2 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// instance is one connected Chrome and whatever was started for it.
type instance struct {
	browser  *rod.Browser
	launcher *launcher.Launcher // nil for a remote Chrome
	display  *display           // nil unless headful
	since    time.Time
}

func (in *instance) owned() bool { return in.launcher != nil }

// close disconnects; a Chrome we launched is killed with its display.
func (in *instance) close() {
	if in.owned() {
		in.browser.Close()
		in.launcher.Cleanup()
	}
	if in.display != nil {
		in.display.stop()
	}
}

// Manager owns the crawler's Chrome.
type Manager struct {
	cfg    Config
	block  []blockRule
	mu     sync.Mutex
	inst   *instance
	closed bool
}

// NewManager validates cfg. Call Start before opening tabs.
func NewManager(cfg Config) (*Manager, error) {
	cfg.defaults()
	block, err := blockRules(cfg.Block)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, block: block}, nil
}

// Start connects to Chrome. Calling it again is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.inst != nil {
		return nil
	}
	in, err := m.connect(ctx)
	if err != nil {
		return err
	}
	m.inst = in
	return nil
}

// Started reports whether a Chrome is connected.
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inst != nil
}

// Close releases Chrome. A remote Chrome keeps running.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.inst != nil {
		m.inst.close()
		m.inst = nil
	}
	return nil
}

// live returns the connected browser, replacing a launched Chrome older
// than RecycleInterval. The login cookies move to the new process.
func (m *Manager) live(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return nil, ErrClosed
	case m.inst == nil:
		return nil, ErrNotStarted
	case !m.inst.owned() || time.Since(m.inst.since) < m.cfg.RecycleInterval:
		return m.inst.browser, nil
	}

	log := m.cfg.Logger
	old := m.inst
	log.Info("browser: recycling chrome", "uptime", time.Since(old.since).Round(time.Second))
	cookies, err := old.browser.GetCookies()
	if err != nil {
		log.Warn("browser: cookies lost on recycle", "error", err)
	}
	old.close()
	m.inst = nil

	in, err := m.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("browser: relaunch: %w", err)
	}
	if err := setCookies(in.browser, cookies); err != nil {
		log.Warn("browser: cookies lost on recycle", "error", err)
	}
	m.inst = in
	return in.browser, nil
}

func (m *Manager) connect(ctx context.Context) (*instance, error) {
	in := &instance{since: time.Now()}
	controlURL := m.cfg.RemoteURL

	if controlURL == "" {
		l := launcher.New().Context(ctx).
			Headless(!m.cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")
		if m.cfg.Headful {
			d, err := startDisplay(ctx, m.cfg.XvfbDisplay)
			if err != nil {
				return nil, err
			}
			in.display = d
			l = l.Env("DISPLAY=" + m.cfg.XvfbDisplay)
		}
		u, err := l.Launch()
		if err != nil {
			if in.display != nil {
				in.display.stop()
			}
			return nil, fmt.Errorf("browser: launch chrome: %w", err)
		}
		in.launcher = l
		controlURL = u
	}

	in.browser = rod.New().ControlURL(controlURL)
	if err := in.browser.Connect(); err != nil {
		in.close()
		return nil, fmt.Errorf("browser: connect %s: %w", controlURL, err)
	}
	m.cfg.Logger.Info("browser: connected", "url", controlURL, "launched", in.owned(), "headful", m.cfg.Headful)
	return in, nil
}
