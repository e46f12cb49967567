package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
)

const (
	whoScope      = "icdapi_access"
	whoRelease    = "/icd/release/10/2019/"
	tokenLeeway   = 30 * time.Second
	whoAPIVersion = "v2"
)

// WHOConfig holds the ICD API endpoint and client credentials.
type WHOConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// WHOValidator looks codes up in the WHO ICD-10 release using the OAuth2
// client-credentials flow. The access token is shared across requests and
// refreshed shortly before it expires.
type WHOValidator struct {
	client *resty.Client
	cfg    WHOConfig

	fetches singleflight.Group

	mu      sync.Mutex
	token   string
	expires time.Time
}

type whoToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func NewWHOValidator(cfg WHOConfig) *WHOValidator {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "en").
		SetHeader("API-Version", whoAPIVersion)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &WHOValidator{client: client, cfg: cfg}
}

func (v *WHOValidator) Validate(ctx context.Context, code, name string) (*ValidationResult, error) {
	token, err := v.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(whoRelease + url.PathEscape(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("who lookup %s: %w", code, err)
	}

	result := &ValidationResult{ConfirmedCode: code, ConfirmedName: name, Source: SourceWHO}
	switch resp.StatusCode() {
	case http.StatusOK:
		result.IsValid = true
	case http.StatusNotFound:
		result.IsValid = false
	case http.StatusUnauthorized:
		v.invalidate()
		return nil, fmt.Errorf("who lookup %s: unauthorized", code)
	default:
		return nil, fmt.Errorf("who lookup %s: unexpected status %d", code, resp.StatusCode())
	}
	return result, nil
}

// accessToken returns the cached token or fetches a new one. Concurrent
// callers share a single in-flight fetch; the mutex only guards the cache.
func (v *WHOValidator) accessToken(ctx context.Context) (string, error) {
	if tok, ok := v.cachedToken(); ok {
		return tok, nil
	}
	tok, err, _ := v.fetches.Do("token", func() (interface{}, error) {
		if tok, ok := v.cachedToken(); ok {
			return tok, nil
		}
		return v.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return tok.(string), nil
}

func (v *WHOValidator) cachedToken() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.token != "" && time.Now().Before(v.expires) {
		return v.token, true
	}
	return "", false
}

func (v *WHOValidator) fetchToken(ctx context.Context) (string, error) {
	var tok whoToken
	resp, err := v.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     v.cfg.ClientID,
			"client_secret": v.cfg.ClientSecret,
			"scope":         whoScope,
		}).
		SetResult(&tok).
		Post(v.cfg.TokenURL)
	if err != nil {
		return "", fmt.Errorf("who token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("who token: status %d", resp.StatusCode())
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("who token: %w", missing("access_token"))
	}

	now := time.Now()
	v.mu.Lock()
	v.token = tok.AccessToken
	v.expires = now.Add(tokenLifetime(time.Duration(tok.ExpiresIn) * time.Second))
	v.mu.Unlock()
	return tok.AccessToken, nil
}

// tokenLifetime is how long a token is reused: its lifetime minus the
// leeway, with the leeway capped at half the lifetime for short-lived tokens.
func tokenLifetime(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	leeway := tokenLeeway
	if leeway > ttl/2 {
		leeway = ttl / 2
	}
	return ttl - leeway
}

func (v *WHOValidator) invalidate() {
	v.mu.Lock()
	v.token = ""
	v.mu.Unlock()
}
