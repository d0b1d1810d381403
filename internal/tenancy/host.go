package tenancy

import (
	"net"
	"regexp"
	"strings"
)

const (
	DefaultLocalMarker = "localhost"
	DefaultAPIPrefix   = "/api"
)

// labelRegex matches a DNS label usable as a tenant slug.
var labelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// HostInfo is the parsed form of a Host header.
type HostInfo struct {
	Present  bool
	Local    bool
	IP       bool
	Hostname string
	Labels   []string
}

// Resolver holds the tenancy rules. All methods are pure; a Resolver is safe
// for concurrent use once built.
type Resolver struct {
	LocalMarker   string
	Reserved      []string
	APIPrefix     string
	AssetPrefixes []string
}

// NewResolver returns a Resolver with the default rules: "localhost" marks
// local development, "www" is reserved, /api is the API prefix and /static
// plus the runtime probes are treated as assets.
func NewResolver() *Resolver {
	return &Resolver{
		LocalMarker:   DefaultLocalMarker,
		Reserved:      []string{"www"},
		APIPrefix:     DefaultAPIPrefix,
		AssetPrefixes: []string{"/static", "/health", "/ready", "/metrics"},
	}
}

// ParseHost classifies a raw Host header value. An empty value yields
// Present=false.
func (res *Resolver) ParseHost(host string) HostInfo {
	h := strings.TrimSpace(host)
	if h == "" {
		return HostInfo{}
	}

	if name, _, err := net.SplitHostPort(h); err == nil {
		h = name
	} else if strings.HasPrefix(h, "[") && strings.HasSuffix(h, "]") {
		h = h[1 : len(h)-1]
	}

	h = strings.TrimSuffix(strings.ToLower(h), ".")
	if h == "" {
		return HostInfo{}
	}

	info := HostInfo{
		Present:  true,
		Hostname: h,
		Local:    res.LocalMarker != "" && strings.Contains(h, res.LocalMarker),
	}

	if net.ParseIP(h) != nil {
		info.IP = true
		info.Labels = []string{h}
		return info
	}

	info.Labels = strings.Split(h, ".")
	return info
}

// Slug extracts the tenant slug from parsed host information, or "" when the
// host does not name a tenant.
func (res *Resolver) Slug(info HostInfo) string {
	if !info.Present || info.IP {
		return ""
	}

	minLabels := 3
	if info.Local {
		minLabels = 2
	}
	if len(info.Labels) < minLabels {
		return ""
	}

	candidate := info.Labels[0]
	if res.IsReserved(candidate) || !labelRegex.MatchString(candidate) {
		return ""
	}
	return candidate
}

// SlugFromHost parses host and extracts the tenant slug in one step.
func (res *Resolver) SlugFromHost(host string) string {
	return res.Slug(res.ParseHost(host))
}

// IsReserved reports whether label is a reserved subdomain.
func (res *Resolver) IsReserved(label string) bool {
	for _, r := range res.Reserved {
		if strings.EqualFold(r, label) {
			return true
		}
	}
	return false
}

// UnavailableSlugs lists the labels a tenant may not use: the reserved
// subdomains, the first segment of every pass-through prefix and the given
// top-level page names. A slug matching a path segment the router treats
// as already scoped would never reach the tenant's own pages.
func (res *Resolver) UnavailableSlugs(pages ...string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.Trim(s, "/"))
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, r := range res.Reserved {
		add(r)
	}
	add(res.APIPrefix)
	for _, p := range res.AssetPrefixes {
		add(p)
	}
	for _, p := range pages {
		add(p)
	}
	return out
}

// IsValidLabel reports whether s is a syntactically valid DNS label.
func IsValidLabel(s string) bool {
	return labelRegex.MatchString(s)
}
