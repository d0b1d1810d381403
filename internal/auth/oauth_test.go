package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugh/gymhub/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeGoogle struct {
	server       *httptest.Server
	accessToken  string
	email        string
	verified     bool
	delay        time.Duration
	tokenCalls   atomic.Int32
	lastRedirect atomic.Value
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	g := &fakeGoogle{accessToken: "at-123", email: "Member@Example.com", verified: true}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		g.tokenCalls.Add(1)
		_ = r.ParseForm()
		g.lastRedirect.Store(r.Form.Get("redirect_uri"))
		if g.delay > 0 {
			time.Sleep(g.delay)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": g.accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/tokeninfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("access_token") != g.accessToken {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"email":          g.email,
			"verified_email": g.verified,
		})
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGoogle) provider(timeout time.Duration) *auth.GoogleProvider {
	return auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:            "client-id",
		ClientSecret:        "client-secret",
		PlatformRedirectURL: "http://localhost:8080/api/v1/auth/google/callback",
		ClientRedirectURL:   "http://localhost:8080/api/v1/auth/google/client/callback",
		Timeout:             timeout,
		Endpoint: oauth2.Endpoint{
			AuthURL:   g.server.URL + "/auth",
			TokenURL:  g.server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		TokenInfoURL: g.server.URL + "/tokeninfo",
		HTTPClient:   g.server.Client(),
	})
}

func TestGoogleProvider_AuthCodeURLCarriesStateVerbatim(t *testing.T) {
	g := newFakeGoogle(t)
	p := g.provider(time.Second)

	for _, slug := range []string{"gold", "iron-works", "a-b-c-1"} {
		raw := p.AuthCodeURL(auth.FlowClient, slug)
		u, err := url.Parse(raw)
		require.NoError(t, err)

		assert.Equal(t, slug, u.Query().Get("state"))
		assert.Equal(t, "http://localhost:8080/api/v1/auth/google/client/callback", u.Query().Get("redirect_uri"))
	}
}

func TestGoogleProvider_VerifiedEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("returns lowercased email", func(t *testing.T) {
		g := newFakeGoogle(t)
		email, err := g.provider(time.Second).VerifiedEmail(ctx, auth.FlowClient, "good")
		require.NoError(t, err)
		assert.Equal(t, "member@example.com", email)
		assert.Equal(t, "http://localhost:8080/api/v1/auth/google/client/callback", g.lastRedirect.Load())
	})

	t.Run("platform flow uses platform redirect", func(t *testing.T) {
		g := newFakeGoogle(t)
		_, err := g.provider(time.Second).VerifiedEmail(ctx, auth.FlowPlatform, "good")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/api/v1/auth/google/callback", g.lastRedirect.Load())
	})

	t.Run("exchange failure is no access token", func(t *testing.T) {
		g := newFakeGoogle(t)
		_, err := g.provider(time.Second).VerifiedEmail(ctx, auth.FlowClient, "bad")
		assert.ErrorIs(t, err, auth.ErrNoAccessToken)
		assert.Equal(t, int32(1), g.tokenCalls.Load(), "never retried")
	})

	t.Run("missing email", func(t *testing.T) {
		g := newFakeGoogle(t)
		g.email = ""
		_, err := g.provider(time.Second).VerifiedEmail(ctx, auth.FlowClient, "good")
		assert.ErrorIs(t, err, auth.ErrNoEmail)
	})

	t.Run("unverified email", func(t *testing.T) {
		g := newFakeGoogle(t)
		g.verified = false
		_, err := g.provider(time.Second).VerifiedEmail(ctx, auth.FlowClient, "good")
		assert.ErrorIs(t, err, auth.ErrNoEmail)
	})

	t.Run("slow provider times out", func(t *testing.T) {
		g := newFakeGoogle(t)
		g.delay = 300 * time.Millisecond
		_, err := g.provider(50*time.Millisecond).VerifiedEmail(ctx, auth.FlowClient, "good")
		assert.ErrorIs(t, err, auth.ErrNoAccessToken)
	})

	t.Run("caller cancellation does not abort the exchange", func(t *testing.T) {
		g := newFakeGoogle(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		email, err := g.provider(time.Second).VerifiedEmail(cctx, auth.FlowClient, "good")
		require.NoError(t, err)
		assert.Equal(t, "member@example.com", email)
	})
}
