package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/internal/metrics"
	"gorm.io/gorm"
)

var (
	ErrNoToken         = errors.New("no session token")
	ErrTenantMismatch  = errors.New("session belongs to a different tenant")
	ErrAccountInactive = errors.New("account inactive")
)

// Rejection reasons as recorded in metrics and security events.
const (
	ReasonNoToken         = "no_token"
	ReasonExpired         = "expired"
	ReasonInvalid         = "invalid"
	ReasonTenantMismatch  = "tenant_mismatch"
	ReasonAccountInactive = "account_inactive"
)

// RejectionEvent describes a session rejection of security interest.
type RejectionEvent struct {
	Reason         string    `json:"reason"`
	Flow           string    `json:"flow"`
	ExpectedTenant string    `json:"expected_tenant,omitempty"`
	TokenTenant    string    `json:"token_tenant,omitempty"`
	Subject        string    `json:"subject,omitempty"`
	Path           string    `json:"path"`
	RemoteAddr     string    `json:"remote_addr"`
	RequestID      string    `json:"request_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventSink receives security events. Publishing failures never change the
// outcome of a validation.
type EventSink interface {
	PublishRejection(ctx context.Context, ev RejectionEvent) error
}

// Validator authenticates requests against the tenant the router resolved.
// Account state is read on every call.
type Validator struct {
	db     *gorm.DB
	jwt    *JWTService
	sink   EventSink
	logger *slog.Logger
}

func NewValidator(db *gorm.DB, jwt *JWTService, sink EventSink, logger *slog.Logger) *Validator {
	return &Validator{db: db, jwt: jwt, sink: sink, logger: logger}
}

// ReasonFor maps a validation error to its rejection reason.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, ErrNoToken):
		return ReasonNoToken
	case errors.Is(err, ErrExpiredToken):
		return ReasonExpired
	case errors.Is(err, ErrTenantMismatch):
		return ReasonTenantMismatch
	case errors.Is(err, ErrAccountInactive):
		return ReasonAccountInactive
	default:
		return ReasonInvalid
	}
}

// Validate returns the identity of the request for tenant. An empty tenant
// means the platform (root domain) and only platform tokens are accepted;
// otherwise only a tenant-client token minted for exactly that tenant is.
func (v *Validator) Validate(ctx context.Context, r *http.Request, tenant string) (Identity, error) {
	cookieName := PlatformCookieName
	if tenant != "" {
		cookieName = TenantCookieName
	}

	raw := tokenFromRequest(r, cookieName)
	if raw == "" {
		return nil, v.reject(ctx, r, tenant, nil, ErrNoToken)
	}

	id, err := v.jwt.Decode(raw)
	if err != nil {
		return nil, v.reject(ctx, r, tenant, nil, err)
	}

	if tenant == "" {
		p, ok := id.(PlatformIdentity)
		if !ok {
			return nil, v.reject(ctx, r, tenant, id, ErrTenantMismatch)
		}
		return v.checkPlatform(ctx, r, p)
	}

	c, ok := id.(ClientIdentity)
	if !ok || c.TenantSlug != tenant {
		return nil, v.reject(ctx, r, tenant, id, ErrTenantMismatch)
	}
	return v.checkClient(ctx, r, tenant, c)
}

func (v *Validator) checkPlatform(ctx context.Context, r *http.Request, id PlatformIdentity) (Identity, error) {
	var user models.User
	if err := v.db.WithContext(ctx).First(&user, id.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, v.reject(ctx, r, "", id, ErrAccountInactive)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	id.Email = user.Email
	id.ProfileComplete = user.ProfileComplete()
	return id, nil
}

func (v *Validator) checkClient(ctx context.Context, r *http.Request, tenant string, id ClientIdentity) (Identity, error) {
	var t models.Tenant
	if err := v.db.WithContext(ctx).First(&t, id.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, v.reject(ctx, r, tenant, id, ErrAccountInactive)
		}
		return nil, fmt.Errorf("loading tenant: %w", err)
	}
	if t.Slug != tenant {
		return nil, v.reject(ctx, r, tenant, id, ErrTenantMismatch)
	}
	if !t.IsActive {
		return nil, v.reject(ctx, r, tenant, id, ErrAccountInactive)
	}

	var c models.Client
	if err := v.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id.ClientID, t.ID).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, v.reject(ctx, r, tenant, id, ErrAccountInactive)
		}
		return nil, fmt.Errorf("loading client: %w", err)
	}
	if !c.IsActive {
		return nil, v.reject(ctx, r, tenant, id, ErrAccountInactive)
	}

	return id, nil
}

func (v *Validator) reject(ctx context.Context, r *http.Request, tenant string, id Identity, err error) error {
	flow := string(FlowPlatform)
	if tenant != "" {
		flow = string(FlowClient)
	}
	reason := ReasonFor(err)
	metrics.SessionRejections.WithLabelValues(flow, reason).Inc()

	if reason != ReasonTenantMismatch && reason != ReasonAccountInactive {
		v.logger.Debug("session rejected", "flow", flow, "reason", reason, "path", r.URL.Path)
		return err
	}

	ev := RejectionEvent{
		Reason:         reason,
		Flow:           flow,
		ExpectedTenant: tenant,
		Path:           r.URL.Path,
		RemoteAddr:     r.RemoteAddr,
		RequestID:      r.Header.Get("X-Request-ID"),
		OccurredAt:     time.Now().UTC(),
	}
	switch i := id.(type) {
	case ClientIdentity:
		ev.TokenTenant = i.TenantSlug
		ev.Subject = "client:" + strconv.FormatUint(uint64(i.ClientID), 10)
	case PlatformIdentity:
		ev.Subject = "user:" + strconv.FormatUint(uint64(i.UserID), 10)
	}

	if reason == ReasonTenantMismatch {
		v.logger.Warn("session tenant mismatch",
			"expected_tenant", displayTenant(ev.ExpectedTenant),
			"token_tenant", displayTenant(ev.TokenTenant),
			"subject", ev.Subject,
			"path", ev.Path,
		)
	} else {
		v.logger.Info("session rejected", "flow", flow, "reason", reason, "subject", ev.Subject)
	}

	if v.sink != nil {
		if perr := v.sink.PublishRejection(ctx, ev); perr != nil {
			v.logger.Error("failed to publish security event", "error", perr)
		}
	}

	return err
}

func displayTenant(slug string) string {
	if slug == "" {
		return "(platform)"
	}
	return slug
}

// tokenFromRequest reads the session cookie, falling back to a bearer
// Authorization header.
func tokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
