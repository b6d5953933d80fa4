package smartstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// TokenSource supplies bearer tokens for the commerce API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed, externally managed token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// Signer produces client_secret_sign for a client id and a millisecond
// timestamp. The commerce API expects base64(bcrypt(clientID_ts, secret))
// where the secret doubles as the bcrypt salt.
type Signer func(clientID string, timestampMillis int64) (string, error)

// CredentialsSource fetches tokens with the client-credentials grant and
// caches each one until shortly before it expires.
type CredentialsSource struct {
	http     *resty.Client
	clientID string
	sign     Signer
	now      func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// NewCredentialsSource returns a CredentialsSource against cfg.BaseURL.
func NewCredentialsSource(cfg Config, sign Signer) *CredentialsSource {
	cfg.defaults()
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	return &CredentialsSource{http: client, clientID: cfg.ClientID, sign: sign, now: time.Now}
}

func (s *CredentialsSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires) {
		return s.token, nil
	}
	if s.clientID == "" || s.sign == nil {
		return "", ErrNoToken
	}

	ts := now.UnixMilli()
	sig, err := s.sign(s.clientID, ts)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	var out tokenResponse
	apiErr := &APIError{}
	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":          s.clientID,
			"timestamp":          strconv.FormatInt(ts, 10),
			"grant_type":         "client_credentials",
			"client_secret_sign": sig,
			"type":               "SELF",
		}).
		SetResult(&out).
		SetError(apiErr).
		ForceContentType("application/json").
		Post(tokenPath)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if res.IsError() {
		apiErr.Status = res.StatusCode()
		return "", apiErr
	}
	if out.AccessToken == "" {
		return "", errors.New("token response without access_token")
	}

	s.token = out.AccessToken
	// Refresh a minute early so in-flight requests never carry a stale token.
	s.expires = now.Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return s.token, nil
}
