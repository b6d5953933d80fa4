package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestBlockRules(t *testing.T) {
	rules, err := blockRules([]string{"Images", " fonts", "images"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules: got %d, want 2 (duplicates collapsed)", len(rules))
	}
	if rules[0].typ != proto.NetworkResourceTypeImage || rules[1].typ != proto.NetworkResourceTypeFont {
		t.Fatalf("rules: got %+v", rules)
	}
}

func TestBlockRules_RefusesDataCarriers(t *testing.T) {
	for _, name := range []string{"xhr", "script", "fetch", "document"} {
		if _, err := blockRules([]string{name}); err == nil {
			t.Errorf("blockRules(%q): expected error", name)
		}
	}
}

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManager(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if m.cfg.XvfbDisplay != ":99" || m.cfg.RecycleInterval <= 0 || m.cfg.Logger == nil {
		t.Fatalf("defaults: %+v", m.cfg)
	}
	if m.Started() {
		t.Fatal("Started before Start")
	}
	if _, err := m.live(t.Context()); err != ErrNotStarted {
		t.Fatalf("live: got %v, want ErrNotStarted", err)
	}
	m.Close()
	if err := m.Start(t.Context()); err != ErrClosed {
		t.Fatalf("Start after Close: got %v, want ErrClosed", err)
	}
}
