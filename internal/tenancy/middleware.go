package tenancy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hugh/gymhub/internal/metrics"
)

type contextKey string

const decisionKey contextKey = "tenancy_decision"

// WithDecision stores a routing decision in ctx.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionKey, d)
}

// DecisionFromContext returns the routing decision made for the request.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey).(Decision)
	return d, ok
}

// TenantFromContext returns the tenant slug the router scoped the request
// to, or "" when the request is not tenant-scoped.
func TenantFromContext(ctx context.Context) string {
	if d, ok := DecisionFromContext(ctx); ok && d.Scoped {
		return d.Slug
	}
	return ""
}

// Rewrite is the edge middleware applying Route to every request. Rewrites
// are internal: the path handed to the next handler changes, the client
// never sees a redirect. A request that already carries a decision is
// passed on untouched.
func Rewrite(res *Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := DecisionFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			d := res.Route(r.Host, r.URL.Path, r.URL.RawQuery)
			metrics.RouteDecisions.WithLabelValues(d.Action.String()).Inc()

			r = r.WithContext(WithDecision(r.Context(), d))

			if d.Action == RewriteToTenant {
				u := *r.URL
				u.Path = d.Path
				if u.RawPath != "" {
					u.RawPath = "/" + d.Slug + u.RawPath
				}
				r.URL = &u

				logger.Debug("tenant rewrite",
					"host", r.Host,
					"tenant", d.Slug,
					"path", d.InternalURL(),
				)
			}

			next.ServeHTTP(w, r)
		})
	}
}
