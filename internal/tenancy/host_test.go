package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHost(t *testing.T) {
	res := NewResolver()

	tests := []struct {
		name     string
		host     string
		present  bool
		local    bool
		ip       bool
		hostname string
		labels   []string
	}{
		{"empty", "", false, false, false, "", nil},
		{"whitespace", "   ", false, false, false, "", nil},
		{"bare_localhost", "localhost", true, true, false, "localhost", []string{"localhost"}},
		{"localhost_port", "localhost:3000", true, true, false, "localhost", []string{"localhost"}},
		{"tenant_localhost_port", "gold.localhost:3000", true, true, false, "gold.localhost", []string{"gold", "localhost"}},
		{"prod_tenant", "gold.example.com", true, false, false, "gold.example.com", []string{"gold", "example", "com"}},
		{"prod_any_port", "gold.example.com:8443", true, false, false, "gold.example.com", []string{"gold", "example", "com"}},
		{"uppercase", "Gold.Example.COM", true, false, false, "gold.example.com", []string{"gold", "example", "com"}},
		{"trailing_dot", "gold.example.com.", true, false, false, "gold.example.com", []string{"gold", "example", "com"}},
		{"ipv4", "127.0.0.1:8080", true, false, true, "127.0.0.1", []string{"127.0.0.1"}},
		{"ipv6", "[::1]:8080", true, false, true, "::1", []string{"::1"}},
		{"ipv6_no_port", "[::1]", true, false, true, "::1", []string{"::1"}},
		{"only_colon", ":", false, false, false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := res.ParseHost(tt.host)
			assert.Equal(t, tt.present, info.Present)
			assert.Equal(t, tt.local, info.Local)
			assert.Equal(t, tt.ip, info.IP)
			assert.Equal(t, tt.hostname, info.Hostname)
			assert.Equal(t, tt.labels, info.Labels)
		})
	}
}

func TestParseHost_NeverPanics(t *testing.T) {
	res := NewResolver()

	inputs := []string{
		"[", "]", "[]", "::::", "...", ".", "a..b", ":3000", "gold.:", "\x00", "%zz.example.com",
		"[::1", "gold.example.com:port", "very.long." + string(make([]byte, 300)),
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			info := res.ParseHost(in)
			_ = res.Slug(info)
		}, "host %q", in)
	}
}

func TestSlug(t *testing.T) {
	res := NewResolver()

	tests := []struct {
		name string
		host string
		want string
	}{
		{"no_host", "", ""},
		{"bare_localhost", "localhost:3000", ""},
		{"local_tenant", "gold.localhost:3000", "gold"},
		{"local_nested", "a.b.localhost", "a"},
		{"local_www", "www.localhost", ""},
		{"apex_domain", "example.com", ""},
		{"www_two_labels", "www.com", ""},
		{"www_reserved", "www.example.com", ""},
		{"prod_tenant", "gold.example.com", "gold"},
		{"prod_hyphen", "iron-works.example.com", "iron-works"},
		{"prod_deep", "gold.eu.example.com", "gold"},
		{"uppercase_normalised", "GOLD.example.com", "gold"},
		{"ip_literal", "10.0.0.1", ""},
		{"invalid_label", "go_ld.example.com", ""},
		{"empty_first_label", ".example.com", ""},
		{"leading_hyphen", "-gold.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, res.SlugFromHost(tt.host))
		})
	}
}

func TestSlug_LocalSingleLabelNeverResolves(t *testing.T) {
	res := NewResolver()

	for _, host := range []string{"localhost", "localhost:3000", "localhost:80", "LOCALHOST", "localhost."} {
		assert.Equal(t, "", res.SlugFromHost(host), "host %q", host)
	}
}

func TestSlug_ThreeLabelProduction(t *testing.T) {
	res := NewResolver()

	for _, sub := range []string{"gold", "silver", "a", "gym-42", "x1", "www"} {
		want := sub
		if sub == "www" {
			want = ""
		}
		assert.Equal(t, want, res.SlugFromHost(sub+".domain.tld"), "sub %q", sub)
	}
}

func TestSlug_Deterministic(t *testing.T) {
	res := NewResolver()

	for _, host := range []string{"gold.localhost:3000", "gold.example.com", "www.example.com", ""} {
		first := res.SlugFromHost(host)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, res.SlugFromHost(host))
		}
	}
}

func TestSlug_CustomRules(t *testing.T) {
	res := &Resolver{
		LocalMarker: "test",
		Reserved:    []string{"www", "app"},
		APIPrefix:   "/api",
	}

	assert.Equal(t, "gold", res.SlugFromHost("gold.test"))
	assert.Equal(t, "", res.SlugFromHost("app.example.com"))
	assert.Equal(t, "", res.SlugFromHost("gold.localhost"), "localhost is not local under a custom marker")
}

func TestIsValidLabel(t *testing.T) {
	assert.True(t, IsValidLabel("gold"))
	assert.True(t, IsValidLabel("g"))
	assert.True(t, IsValidLabel("iron-works-2"))
	assert.False(t, IsValidLabel(""))
	assert.False(t, IsValidLabel("-gold"))
	assert.False(t, IsValidLabel("gold-"))
	assert.False(t, IsValidLabel("Gold"))
	assert.False(t, IsValidLabel("go.ld"))
	assert.False(t, IsValidLabel("go ld"))
}

func TestUnavailableSlugs(t *testing.T) {
	res := NewResolver()
	res.AssetPrefixes = append(res.AssetPrefixes, "/assets/v2")

	got := res.UnavailableSlugs("/login", "Dashboard", "www")

	assert.Equal(t, []string{"www", "api", "static", "health", "ready", "metrics", "assets", "login", "dashboard"}, got)
}

func TestUnavailableSlugs_RouteUnscoped(t *testing.T) {
	res := NewResolver()

	// Every unavailable label, taken as a tenant, would have its own
	// pages swallowed by a pass-through prefix or the scoped-path guard.
	for _, slug := range res.UnavailableSlugs() {
		if res.IsReserved(slug) {
			assert.Empty(t, res.SlugFromHost(slug+".localhost:3000"), slug)
			continue
		}
		d := res.Route(slug+".localhost:3000", "/"+slug, "")
		assert.Equal(t, PassThrough, d.Action, slug)
	}
}
