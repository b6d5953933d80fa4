// CLAUDE:SUMMARY SmartStore commerce API client: product registration and image re-hosting, bearer auth via TokenSource.
// Package smartstore registers assembled listings on the Naver SmartStore
// commerce API and re-hosts product images on its image service.
package smartstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/hazyhaar/itemrelay/listing"
)

const (
	productsPath     = "/external/v2/products"
	imageUploadPath  = "/external/v1/product-images/upload"
	tokenPath        = "/external/v1/oauth2/token"
	maxUploadBatch   = 10
	defaultUserAgent = "itemrelay/1.0"
)

// Config configures the commerce API client.
type Config struct {
	BaseURL string `yaml:"base_url"`
	// AccessToken is used as-is when set. Otherwise ClientID plus a Signer
	// obtain tokens through the client-credentials grant.
	AccessToken string        `yaml:"access_token"`
	ClientID    string        `yaml:"client_id"`
	Timeout     time.Duration `yaml:"timeout"`
	// UploadBatch is the number of images per upload call, at most 10.
	UploadBatch       int     `yaml:"upload_batch"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Retries           int     `yaml:"retries"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.commerce.naver.com"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UploadBatch <= 0 || c.UploadBatch > maxUploadBatch {
		c.UploadBatch = maxUploadBatch
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.Retries <= 0 {
		c.Retries = 2
	}
}

var (
	ErrNoToken   = errors.New("smartstore: no access token configured")
	ErrNoImages  = errors.New("smartstore: no images to upload")
	ErrRejected  = errors.New("smartstore: request rejected")
	ErrBadUpload = errors.New("smartstore: upload returned fewer images than sent")
)

// APIError is a non-2xx answer from the commerce API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Invalid []struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"invalidInputs"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "smartstore: status %d", e.Status)
	if e.Code != "" {
		b.WriteString(" " + e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	for _, in := range e.Invalid {
		fmt.Fprintf(&b, "; %s: %s", in.Name, in.Message)
	}
	return b.String()
}

func (e *APIError) Is(target error) bool { return target == ErrRejected }

// Client talks to the commerce API.
type Client struct {
	http   *resty.Client
	fetch  *resty.Client
	tokens TokenSource
	cfg    Config
	logger *slog.Logger
}

// New returns a Client. tokens may be nil when cfg.AccessToken is set.
func New(cfg Config, tokens TokenSource, logger *slog.Logger) *Client {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil && cfg.AccessToken != "" {
		tokens = StaticToken(cfg.AccessToken)
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.Retries)
	client.SetRetryWaitTime(time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
	})
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	fetch := resty.New()
	fetch.SetTimeout(cfg.Timeout)
	fetch.SetHeader("User-Agent", defaultUserAgent)
	fetch.SetRetryCount(cfg.Retries)

	return &Client{http: client, fetch: fetch, tokens: tokens, cfg: cfg, logger: logger}
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if c.tokens == nil {
		return nil, ErrNoToken
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("smartstore: token: %w", err)
	}
	return c.http.R().SetContext(ctx).SetAuthToken(tok), nil
}

// Registration is the product numbers assigned on registration.
type Registration struct {
	OriginProductNo  int64 `json:"originProductNo"`
	ChannelProductNo int64 `json:"smartstoreChannelProductNo"`
}

// ChannelProduct returns the channel product number as text.
func (r Registration) ChannelProduct() string { return productNo(r.ChannelProductNo) }

// Register creates the product described by p.
func (c *Client) Register(ctx context.Context, p *listing.Payload) (*Registration, error) {
	if p == nil {
		return nil, errors.New("smartstore: nil payload")
	}
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var reg Registration
	apiErr := &APIError{}
	res, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(NewProductRequest(p)).
		SetResult(&reg).
		SetError(apiErr).
		ForceContentType("application/json").
		Post(productsPath)
	if err != nil {
		return nil, fmt.Errorf("smartstore: register: %w", err)
	}
	if res.IsError() {
		apiErr.Status = res.StatusCode()
		c.logger.Warn("smartstore: registration rejected",
			"seller_code", p.SellerCode, "status", apiErr.Status, "code", apiErr.Code)
		return nil, apiErr
	}

	c.logger.Info("smartstore: product registered",
		"seller_code", p.SellerCode,
		"origin_product_no", reg.OriginProductNo,
		"channel_product_no", reg.ChannelProductNo)
	return &reg, nil
}
