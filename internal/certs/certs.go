// Package certs issues TLS certificates on demand for the root domain and
// the subdomains of active gyms.
package certs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/internal/tenancy"
	"github.com/hugh/gymhub/pkg/config"
	"golang.org/x/crypto/acme/autocert"
	"gorm.io/gorm"
)

var ErrHostNotAllowed = errors.New("host not allowed")

// HostPolicy admits the root domain, its reserved subdomains and
// <slug>.<root> for every active gym. Anything else is refused so arbitrary
// Host headers cannot trigger certificate orders.
func HostPolicy(db *gorm.DB, res *tenancy.Resolver, rootDomain string) autocert.HostPolicy {
	root := strings.ToLower(strings.TrimSuffix(rootDomain, "."))

	return func(ctx context.Context, host string) error {
		host = strings.ToLower(strings.TrimSuffix(host, "."))
		if host == root {
			return nil
		}

		label, ok := strings.CutSuffix(host, "."+root)
		if !ok || strings.Contains(label, ".") {
			return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
		}
		if res.IsReserved(label) {
			return nil
		}
		if !tenancy.IsValidLabel(label) {
			return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
		}

		var count int64
		if err := db.WithContext(ctx).Model(&models.Tenant{}).
			Where("slug = ? AND is_active = ?", label, true).
			Count(&count).Error; err != nil {
			return fmt.Errorf("checking tenant %q: %w", label, err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
		}
		return nil
	}
}

// NewManager returns an autocert manager caching certificates in
// cfg.CacheDir.
func NewManager(cfg *config.TLSConfig, policy autocert.HostPolicy) *autocert.Manager {
	return &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(cfg.CacheDir),
		HostPolicy: policy,
		Email:      cfg.Email,
	}
}
