package tenancy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPath(t *testing.T) {
	res := NewResolver()

	tests := []struct {
		path string
		want PathClass
	}{
		{"/", PathPage},
		{"/dashboard", PathPage},
		{"/login", PathPage},
		{"/apiary", PathPage},
		{"/staticky/page", PathPage},
		{"/favicon.ico", PathInternal},
		{"/robots.txt", PathInternal},
		{"/dashboard/v1.2", PathInternal},
		{"/static", PathInternal},
		{"/static/app.css", PathInternal},
		{"/static/img/logo", PathInternal},
		{"/health", PathInternal},
		{"/ready", PathInternal},
		{"/metrics", PathInternal},
		{"/api", PathAPI},
		{"/api/client", PathAPI},
		{"/api/v1/auth/google/client/callback", PathAPI},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, res.ClassifyPath(tt.path))
		})
	}
}

func TestRoute_Scenarios(t *testing.T) {
	res := NewResolver()

	t.Run("tenant subdomain on localhost is rewritten", func(t *testing.T) {
		d := res.Route("gold.localhost:3000", "/dashboard", "")
		assert.Equal(t, RewriteToTenant, d.Action)
		assert.Equal(t, "gold", d.Slug)
		assert.Equal(t, "/gold/dashboard", d.Path)
		assert.True(t, d.Scoped)
	})

	t.Run("bare localhost passes through", func(t *testing.T) {
		d := res.Route("localhost:3000", "/login", "")
		assert.Equal(t, PassThrough, d.Action)
		assert.Equal(t, "/login", d.Path)
		assert.False(t, d.Scoped)
	})

	t.Run("www is reserved", func(t *testing.T) {
		d := res.Route("www.example.com", "/", "")
		assert.Equal(t, PassThrough, d.Action)
		assert.Empty(t, d.Slug)
	})

	t.Run("api prefix bypasses resolvable tenant", func(t *testing.T) {
		d := res.Route("gold.example.com", "/api/client", "")
		assert.Equal(t, PassThrough, d.Action)
		assert.Equal(t, "/api/client", d.Path)
		assert.False(t, d.Scoped)
	})

	t.Run("missing host passes through", func(t *testing.T) {
		d := res.Route("", "/dashboard", "")
		assert.Equal(t, PassThrough, d.Action)
	})

	t.Run("root path is rewritten", func(t *testing.T) {
		d := res.Route("gold.example.com", "/", "")
		assert.Equal(t, RewriteToTenant, d.Action)
		assert.Equal(t, "/gold/", d.Path)
	})

	t.Run("empty path treated as root", func(t *testing.T) {
		d := res.Route("gold.example.com", "", "")
		assert.Equal(t, "/gold/", d.Path)
	})
}

func TestRoute_InternalAndAPIPathsAlwaysPassThrough(t *testing.T) {
	res := NewResolver()

	hosts := []string{"", "localhost", "gold.localhost:3000", "gold.example.com", "www.example.com", "10.0.0.1"}
	paths := []string{"/favicon.ico", "/static/app.css", "/api", "/api/v1/me", "/a/b.c", "/health", "/metrics"}

	for _, h := range hosts {
		for _, p := range paths {
			d := res.Route(h, p, "x=1")
			assert.Equal(t, PassThrough, d.Action, "host=%q path=%q", h, p)
			assert.Equal(t, p, d.Path, "host=%q path=%q", h, p)
		}
	}
}

func TestRoute_PreservesQueryVerbatim(t *testing.T) {
	res := NewResolver()

	raw := "from=2024-01-01&to=2024-02-01&tag=a%20b&tag=c"
	d := res.Route("gold.example.com", "/progress", raw)

	assert.Equal(t, RewriteToTenant, d.Action)
	assert.Equal(t, raw, d.RawQuery)
	assert.Equal(t, "/gold/progress?"+raw, d.InternalURL())
}

func TestRoute_ReentrantInvocationDoesNotDoubleRewrite(t *testing.T) {
	res := NewResolver()

	hosts := []string{"gold.localhost:3000", "gold.example.com"}
	paths := []string{"/", "/dashboard", "/login/google", "/a/b/c"}

	for _, h := range hosts {
		for _, p := range paths {
			first := res.Route(h, p, "q=1")
			require.Equal(t, RewriteToTenant, first.Action)

			second := res.Route(h, first.Path, first.RawQuery)
			assert.Equal(t, PassThrough, second.Action, "host=%q path=%q", h, p)
			assert.Equal(t, first.Path, second.Path)
			assert.Equal(t, first.Slug, second.Slug)
			assert.True(t, second.Scoped)
		}
	}
}

func TestRoute_OtherTenantPrefixIsStillRewritten(t *testing.T) {
	res := NewResolver()

	d := res.Route("silver.example.com", "/gold/dashboard", "")
	assert.Equal(t, RewriteToTenant, d.Action)
	assert.Equal(t, "/silver/gold/dashboard", d.Path)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRewriteMiddleware(t *testing.T) {
	res := NewResolver()

	var gotPath, gotQuery, gotTenant string
	handler := Rewrite(res, newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotTenant = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("rewrites tenant page", func(t *testing.T) {
		req := httptest.NewRequest("GET", "http://gold.localhost:3000/dashboard?week=2", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/gold/dashboard", gotPath)
		assert.Equal(t, "week=2", gotQuery)
		assert.Equal(t, "gold", gotTenant)
		assert.Empty(t, rec.Header().Get("Location"), "rewrite must not redirect")
	})

	t.Run("passes api through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "http://gold.example.com/api/client", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "/api/client", gotPath)
		assert.Empty(t, gotTenant)
	})

	t.Run("missing host passes through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.Host = ""
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/dashboard", gotPath)
		assert.Empty(t, gotTenant)
	})

	t.Run("does not mutate the caller's url", func(t *testing.T) {
		req := httptest.NewRequest("GET", "http://gold.example.com/dashboard", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "/dashboard", req.URL.Path)
		assert.Equal(t, "/gold/dashboard", gotPath)
	})

	t.Run("escaped raw path keeps tenant prefix", func(t *testing.T) {
		req := httptest.NewRequest("GET", "http://gold.example.com/notes/a%2Fb", nil)
		var raw string
		h := Rewrite(res, newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw = r.URL.EscapedPath()
		}))
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "/gold/notes/a%2Fb", raw)
	})
}

func TestRewriteMiddleware_Reentrant(t *testing.T) {
	res := NewResolver()

	var gotPath string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	})
	mw := Rewrite(res, newTestLogger())
	handler := mw(mw(inner))

	req := httptest.NewRequest("GET", "http://gold.example.com/dashboard", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "/gold/dashboard", gotPath)
}

func TestTenantFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, TenantFromContext(req.Context()))

	_, ok := DecisionFromContext(req.Context())
	assert.False(t, ok)
}
