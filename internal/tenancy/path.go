package tenancy

import "strings"

// PathClass is the routing category of a request path.
type PathClass int

const (
	PathPage PathClass = iota
	PathInternal
	PathAPI
)

func (c PathClass) String() string {
	switch c {
	case PathInternal:
		return "internal"
	case PathAPI:
		return "api"
	default:
		return "page"
	}
}

// ClassifyPath reports whether path is an internal asset, an API route or a
// page. Internal and API paths are never rewritten.
func (res *Resolver) ClassifyPath(path string) PathClass {
	if strings.Contains(path, ".") {
		return PathInternal
	}
	for _, prefix := range res.AssetPrefixes {
		if hasSegmentPrefix(path, prefix) {
			return PathInternal
		}
	}
	if hasSegmentPrefix(path, res.APIPrefix) {
		return PathAPI
	}
	return PathPage
}

// hasSegmentPrefix matches prefix against whole path segments, so "/api"
// matches "/api" and "/api/x" but not "/apiary".
func hasSegmentPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
