// CLAUDE:SUMMARY Relay configuration: YAML sections for storage, browser, capture, options, pricing, policy, LLM, SmartStore and HTTP.
package relay

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/itemrelay/crawl"
	"github.com/hazyhaar/itemrelay/listing"
	"github.com/hazyhaar/itemrelay/llm"
	"github.com/hazyhaar/itemrelay/refine"
	"github.com/hazyhaar/itemrelay/skuopt"
	"github.com/hazyhaar/itemrelay/smartstore"
)

// Config holds all relay configuration.
type Config struct {
	DBPath     string            `yaml:"db_path"`
	Site       string            `yaml:"site"`
	Browser    BrowserConfig     `yaml:"browser"`
	Capture    CaptureConfig     `yaml:"capture"`
	Options    OptionsConfig     `yaml:"options"`
	Pricing    refine.Pricing    `yaml:"pricing"`
	Policy     listing.Policy    `yaml:"policy"`
	LLM        llm.Config        `yaml:"llm"`
	SmartStore smartstore.Config `yaml:"smartstore"`
	HTTP       HTTPConfig        `yaml:"http"`
}

// BrowserConfig selects and prepares the Chrome used for crawling.
type BrowserConfig struct {
	RemoteURL      string   `yaml:"remote_url"`
	Headful        bool     `yaml:"headful"`
	BlockResources []string `yaml:"block_resources"`
	CookiesFile    string   `yaml:"cookies_file"`
}

// CaptureConfig controls page visits.
type CaptureConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
	Pace    time.Duration `yaml:"pace"`
	Jitter  time.Duration `yaml:"jitter"`
}

// OptionsConfig tunes option normalization.
type OptionsConfig struct {
	ThresholdRatio float64 `yaml:"threshold_ratio"`
	MaxAxes        int     `yaml:"max_axes"`
	// Translate also translates option group and value names.
	Translate bool `yaml:"translate"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// APIKeyHash is a bcrypt hash of the API key. Empty disables the check.
	APIKeyHash string `yaml:"api_key_hash"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "itemrelay.db"
	}
	if c.Site == "" {
		c.Site = "taobao"
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = 10 * time.Second
	}
	if c.Capture.Retries <= 0 {
		c.Capture.Retries = 1
	}
	if c.Capture.Pace <= 0 {
		c.Capture.Pace = 3 * time.Second
	}
	if c.Capture.Jitter <= 0 {
		c.Capture.Jitter = 3 * time.Second
	}
	if c.Options.ThresholdRatio <= 0 {
		c.Options.ThresholdRatio = skuopt.DefaultThresholdRatio
	}
	if c.Options.MaxAxes <= 0 {
		c.Options.MaxAxes = skuopt.DefaultMaxAxes
	}
	if c.Pricing.ExchangeRate <= 0 {
		c.Pricing.ExchangeRate = refine.DefaultExchangeRate
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8000"
	}
	c.Policy.ApplyDefaults()
}

// CrawlConfig maps the browser and capture sections onto a crawler config.
func (c *Config) CrawlConfig() crawl.Config {
	return crawl.Config{
		RemoteURL:      c.Browser.RemoteURL,
		Headful:        c.Browser.Headful,
		BlockResources: c.Browser.BlockResources,
		CookiesFile:    c.Browser.CookiesFile,
		Timeout:        c.Capture.Timeout,
		Retries:        c.Capture.Retries,
		Pace:           c.Capture.Pace,
		Jitter:         c.Capture.Jitter,
	}
}

func (c *Config) normalizeOptions() []skuopt.Option {
	return []skuopt.Option{
		skuopt.WithThresholdRatio(c.Options.ThresholdRatio),
		skuopt.WithMaxAxes(c.Options.MaxAxes),
	}
}

// LoadConfigFile reads a YAML config file, then applies environment
// overrides for secrets.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("relay: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// ConfigFromEnv returns an empty configuration with environment overrides
// applied, for running without a config file.
func ConfigFromEnv() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ITEMRELAY_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("ITEMRELAY_SMARTSTORE_TOKEN"); v != "" {
		c.SmartStore.AccessToken = v
	}
	if v := os.Getenv("ITEMRELAY_DB_PATH"); v != "" {
		c.DBPath = v
	}
}
