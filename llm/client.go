// CLAUDE:SUMMARY OpenAI-compatible chat client used for translation, name refinement, category choice and seller tags.
// Package llm implements the relay's text-transform collaborators on top of
// an OpenAI-compatible chat-completions endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Config configures the chat client.
type Config struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Model is used for classification, name refinement and tags.
	Model string `yaml:"model"`
	// TranslateModel is used for translation.
	TranslateModel    string        `yaml:"translate_model"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Retries           int           `yaml:"retries"`
	// MinSimilarity is the Jaro-Winkler score below which a model's category
	// answer is not mapped onto a candidate.
	MinSimilarity float64 `yaml:"min_similarity"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.TranslateModel == "" {
		c.TranslateModel = "gpt-4o-mini"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.Retries <= 0 {
		c.Retries = 2
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.85
	}
}

// ErrNoJSON is returned when a completion carries no JSON object.
var ErrNoJSON = errors.New("llm: completion has no JSON object")

// Client calls the chat-completions endpoint.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *slog.Logger
}

// New returns a Client. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Client {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetAuthToken(cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.Retries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
	})

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &Client{http: client, cfg: cfg, logger: logger}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// complete sends one system+user exchange and decodes the first JSON object
// of the answer into out.
func (c *Client) complete(ctx context.Context, model, system, user string, out any) error {
	var result chatResponse
	var apiErr apiError
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:    model,
			Messages: []message{{Role: "system", Content: system}, {Role: "user", Content: user}},
		}).
		SetResult(&result).
		SetError(&apiErr).
		ForceContentType("application/json").
		Post("/chat/completions")
	if err != nil {
		return fmt.Errorf("llm: request: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("llm: status %d: %s", res.StatusCode(), apiErr.Error.Message)
	}
	if len(result.Choices) == 0 {
		return errors.New("llm: empty completion")
	}

	content := result.Choices[0].Message.Content
	obj, err := jsonObject(content)
	if err != nil {
		c.logger.Debug("llm: unparseable completion", "model", model, "content", content)
		return err
	}
	if err := json.Unmarshal(obj, out); err != nil {
		return fmt.Errorf("llm: decode completion: %w", err)
	}
	return nil
}

// jsonObject returns the span from the first '{' to the last '}' of s.
// Models often wrap JSON answers in prose or code fences.
func jsonObject(s string) ([]byte, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	return []byte(s[start : end+1]), nil
}
