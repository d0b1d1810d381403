package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/testutil"
	"github.com/hugh/gymhub/pkg/config"
)

func testTenancy() *config.TenancyConfig {
	return &config.TenancyConfig{
		RootDomain:         "localhost",
		LocalMarker:        "localhost",
		ReservedSubdomains: []string{"www"},
		PublicScheme:       "http",
		PublicPort:         3000,
	}
}

func testCookies() auth.CookiePolicy {
	return auth.CookiePolicy{RootDomain: "localhost", Local: true, MaxAge: 30 * 24 * time.Hour}
}

// ownerRequest builds an API request carrying the platform cookie of ts.User.
func ownerRequest(t *testing.T, ts *testutil.TestSetup, method, target string, body interface{}) *http.Request {
	t.Helper()
	req := testutil.JSONRequest(t, method, target, body)
	return testutil.WithCookie(req, auth.PlatformCookieName, testutil.PlatformToken(t, ts.JWTService, ts.User))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
