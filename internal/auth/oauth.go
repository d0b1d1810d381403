package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrNoAccessToken = errors.New("provider returned no access token")
	ErrNoEmail       = errors.New("provider returned no verified email")
)

// Flow selects which login flow, and therefore which redirect URI, an OAuth
// exchange belongs to.
type Flow string

const (
	FlowPlatform Flow = "platform"
	FlowClient   Flow = "client"
)

const defaultTokenInfoURL = "https://www.googleapis.com/oauth2/v1/tokeninfo"

// IdentityProvider turns an authorization code into a verified email.
type IdentityProvider interface {
	AuthCodeURL(flow Flow, state string) string
	VerifiedEmail(ctx context.Context, flow Flow, code string) (string, error)
}

type GoogleConfig struct {
	ClientID            string
	ClientSecret        string
	PlatformRedirectURL string
	ClientRedirectURL   string
	Timeout             time.Duration

	// Endpoint and TokenInfoURL default to Google's.
	Endpoint     oauth2.Endpoint
	TokenInfoURL string
	HTTPClient   *http.Client
}

type GoogleProvider struct {
	configs      map[Flow]*oauth2.Config
	tokenInfoURL string
	client       *http.Client
	timeout      time.Duration
}

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	tokenInfo := cfg.TokenInfoURL
	if tokenInfo == "" {
		tokenInfo = defaultTokenInfoURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	newConfig := func(redirect string) *oauth2.Config {
		return &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirect,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}

	return &GoogleProvider{
		configs: map[Flow]*oauth2.Config{
			FlowPlatform: newConfig(cfg.PlatformRedirectURL),
			FlowClient:   newConfig(cfg.ClientRedirectURL),
		},
		tokenInfoURL: tokenInfo,
		client:       client,
		timeout:      timeout,
	}
}

// AuthCodeURL builds the consent URL. state is URL-encoded by oauth2 and
// comes back verbatim on the callback.
func (p *GoogleProvider) AuthCodeURL(flow Flow, state string) string {
	return p.config(flow).AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// VerifiedEmail exchanges code for an access token and asks tokeninfo for
// the account email. Each call gets its own timeout and outlives a client
// that disconnects mid-exchange.
func (p *GoogleProvider) VerifiedEmail(ctx context.Context, flow Flow, code string) (string, error) {
	base := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, p.client)

	token, err := p.exchange(base, flow, code)
	if err != nil {
		return "", err
	}

	return p.tokenInfo(base, token.AccessToken)
}

func (p *GoogleProvider) exchange(ctx context.Context, flow Flow, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.config(flow).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAccessToken, err)
	}
	if token.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	return token, nil
}

type tokenInfoResponse struct {
	Email         string `json:"email"`
	VerifiedEmail *bool  `json:"verified_email"`
}

func (p *GoogleProvider) tokenInfo(ctx context.Context, accessToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.tokenInfoURL+"?access_token="+url.QueryEscape(accessToken), nil)
	if err != nil {
		return "", fmt.Errorf("building tokeninfo request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoEmail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: tokeninfo status %d", ErrNoEmail, resp.StatusCode)
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoEmail, err)
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" {
		return "", ErrNoEmail
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return "", ErrNoEmail
	}

	return email, nil
}

func (p *GoogleProvider) config(flow Flow) *oauth2.Config {
	if c, ok := p.configs[flow]; ok {
		return c
	}
	return p.configs[FlowPlatform]
}
