package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is a stealth page opened blank, so listeners attach before the
// product page issues its first request.
type Tab struct {
	Page   *rod.Page
	router *rod.HijackRouter
	cancel context.CancelFunc
}

// Open creates a tab with a desktop viewport and resource blocking.
func (m *Manager) Open(ctx context.Context) (*Tab, error) {
	b, err := m.live(ctx)
	if err != nil {
		return nil, err
	}
	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: open tab: %w", err)
	}
	tab := &Tab{Page: page}

	viewport := proto.EmulationSetDeviceMetricsOverride{Width: 1920, Height: 1080, DeviceScaleFactor: 1}
	if err := viewport.Call(page); err != nil {
		m.cfg.Logger.Debug("browser: viewport", "error", err)
	}
	if len(m.block) > 0 {
		if tab.router, err = block(page, m.block); err != nil {
			tab.Close()
			return nil, err
		}
	}
	return tab, nil
}

// Navigate returns once url is committed. The page keeps loading, and
// issuing its XHRs, afterwards.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	if err := t.Page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// Close stops the listener and the request router, then closes the page.
func (t *Tab) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.router != nil {
		t.router.Stop()
	}
	return t.Page.Close()
}
