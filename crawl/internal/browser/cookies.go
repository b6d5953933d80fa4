package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// LoadCookies installs the cookie jar saved at path. No file means a
// logged-out first run, not an error.
func (m *Manager) LoadCookies(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("browser: cookies: %w", err)
	}
	var jar []*proto.NetworkCookie
	if err := json.Unmarshal(data, &jar); err != nil {
		return 0, fmt.Errorf("browser: cookies %s: %w", path, err)
	}

	b, err := m.live(ctx)
	if err != nil {
		return 0, err
	}
	return len(jar), setCookies(b, jar)
}

// SaveCookies writes the browser's cookie jar to path, readable by the owner only.
func (m *Manager) SaveCookies(ctx context.Context, path string) (int, error) {
	b, err := m.live(ctx)
	if err != nil {
		return 0, err
	}
	jar, err := b.GetCookies()
	if err != nil {
		return 0, fmt.Errorf("browser: read cookies: %w", err)
	}
	data, err := json.MarshalIndent(jar, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return 0, fmt.Errorf("browser: cookies: %w", err)
	}
	return len(jar), nil
}

// setCookies adds jar to b. An empty jar is skipped: SetCookies(nil)
// clears the browser's cookies.
func setCookies(b *rod.Browser, jar []*proto.NetworkCookie) error {
	if len(jar) == 0 {
		return nil
	}
	if err := b.SetCookies(proto.CookiesToParams(jar)); err != nil {
		return fmt.Errorf("browser: set cookies: %w", err)
	}
	return nil
}
