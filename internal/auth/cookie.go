package auth

import (
	"net/http"
	"time"
)

const (
	PlatformCookieName = "access-token"
	TenantCookieName   = "client-token"
)

// CookiePolicy decides the attributes of session cookies. In local mode
// cookies are host-only and not Secure so they work over plain http on
// *.localhost.
type CookiePolicy struct {
	RootDomain string
	Local      bool
	MaxAge     time.Duration
}

// PlatformCookie carries a platform token for the root domain.
func (p CookiePolicy) PlatformCookie(token string) *http.Cookie {
	c := p.base(PlatformCookieName, token)
	if !p.Local {
		c.Domain = p.RootDomain
	}
	return c
}

// TenantCookie carries a tenant-client token scoped to exactly the
// tenant's subdomain.
func (p CookiePolicy) TenantCookie(slug, token string) *http.Cookie {
	c := p.base(TenantCookieName, token)
	if !p.Local {
		c.Domain = slug + "." + p.RootDomain
	}
	return c
}

// ClearPlatform expires the platform cookie.
func (p CookiePolicy) ClearPlatform() *http.Cookie {
	c := p.PlatformCookie("")
	expire(c)
	return c
}

// ClearTenant expires the tenant cookie for slug.
func (p CookiePolicy) ClearTenant(slug string) *http.Cookie {
	c := p.TenantCookie(slug, "")
	expire(c)
	return c
}

func (p CookiePolicy) base(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(p.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   !p.Local,
		SameSite: http.SameSiteLaxMode,
	}
}

func expire(c *http.Cookie) {
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
}
