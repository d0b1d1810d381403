package tenancy

import "strings"

// Action is the outcome of routing a single request.
type Action int

const (
	PassThrough Action = iota
	RewriteToTenant
)

func (a Action) String() string {
	if a == RewriteToTenant {
		return "rewrite"
	}
	return "pass_through"
}

// Decision describes how a request is routed. Scoped is set when the outgoing
// path is tenant-scoped, either because it was rewritten or because it
// already carried the tenant prefix.
type Decision struct {
	Action   Action
	Slug     string
	Path     string
	RawQuery string
	Scoped   bool
}

// InternalURL renders the routed path with its query string.
func (d Decision) InternalURL() string {
	if d.RawQuery == "" {
		return d.Path
	}
	return d.Path + "?" + d.RawQuery
}

// Route decides whether a request for host and path is passed through or
// rewritten to /{slug}{path}. It never fails: anything it cannot make sense
// of is passed through unchanged.
func (res *Resolver) Route(host, path, rawQuery string) Decision {
	if path == "" {
		path = "/"
	}
	pass := Decision{Action: PassThrough, Path: path, RawQuery: rawQuery}

	info := res.ParseHost(host)
	if !info.Present {
		return pass
	}

	if res.ClassifyPath(path) != PathPage {
		return pass
	}

	slug := res.Slug(info)
	if slug == "" {
		return pass
	}

	prefix := "/" + slug
	if path == prefix || strings.HasPrefix(path, prefix+"/") {
		pass.Slug = slug
		pass.Scoped = true
		return pass
	}

	return Decision{
		Action:   RewriteToTenant,
		Slug:     slug,
		Path:     prefix + path,
		RawQuery: rawQuery,
		Scoped:   true,
	}
}
