package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/internal/metrics"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrStateMissing   = errors.New("tenant state missing")
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantInactive = errors.New("tenant is inactive")
	ErrClientNotFound = errors.New("client account not found")
	ErrClientInactive = errors.New("client account inactive")
)

type Service struct {
	db       *gorm.DB
	jwt      *JWTService
	provider IdentityProvider
	logger   *slog.Logger
}

func NewService(db *gorm.DB, jwt *JWTService, provider IdentityProvider, logger *slog.Logger) *Service {
	return &Service{db: db, jwt: jwt, provider: provider, logger: logger}
}

// PlatformLogin is the result of a successful owner login.
type PlatformLogin struct {
	Token string
	User  *models.User
}

// ClientLogin is the result of a successful tenant client login.
type ClientLogin struct {
	Token  string
	Client *models.Client
	Tenant *models.Tenant
}

// AuthCodeURL returns the provider consent URL for flow.
func (s *Service) AuthCodeURL(flow Flow, state string) string {
	return s.provider.AuthCodeURL(flow, state)
}

// LoginPlatform completes the owner OAuth flow: the user is created on first
// login and a platform token is minted.
func (s *Service) LoginPlatform(ctx context.Context, code string) (*PlatformLogin, error) {
	email, err := s.provider.VerifiedEmail(ctx, FlowPlatform, code)
	if err != nil {
		metrics.Logins.WithLabelValues(string(FlowPlatform), "provider_error").Inc()
		return nil, err
	}

	user, err := s.upsertUser(ctx, email)
	if err != nil {
		return nil, err
	}

	token, err := s.IssuePlatformToken(user)
	if err != nil {
		return nil, err
	}

	metrics.Logins.WithLabelValues(string(FlowPlatform), "success").Inc()
	s.logger.Info("platform login", "user_id", user.ID, "profile_complete", user.ProfileComplete())

	return &PlatformLogin{Token: token, User: user}, nil
}

// LoginClient completes the tenant OAuth flow. state is the tenant slug the
// login started from; it is the only source of the tenant binding.
func (s *Service) LoginClient(ctx context.Context, code, state string) (*ClientLogin, error) {
	if state == "" {
		return nil, ErrStateMissing
	}

	email, err := s.provider.VerifiedEmail(ctx, FlowClient, code)
	if err != nil {
		metrics.Logins.WithLabelValues(string(FlowClient), "provider_error").Inc()
		return nil, err
	}

	tenant, client, err := s.clientForTenant(ctx, state, email)
	if err != nil {
		metrics.Logins.WithLabelValues(string(FlowClient), "rejected").Inc()
		s.logger.Info("client login rejected", "tenant", state, "error", err)
		return nil, err
	}

	token, err := s.jwt.IssueClient(ClientIdentity{
		ClientID:   client.ID,
		Email:      email,
		Role:       "client",
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
	})
	if err != nil {
		return nil, err
	}

	metrics.Logins.WithLabelValues(string(FlowClient), "success").Inc()
	s.logger.Info("client login", "tenant", tenant.Slug, "client_id", client.ID)

	return &ClientLogin{Token: token, Client: client, Tenant: tenant}, nil
}

func (s *Service) clientForTenant(ctx context.Context, slug, email string) (*models.Tenant, *models.Client, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTenantNotFound
		}
		return nil, nil, fmt.Errorf("loading tenant: %w", err)
	}
	if !tenant.IsActive {
		return nil, nil, ErrTenantInactive
	}

	var client models.Client
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", tenant.ID, email).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrClientNotFound
		}
		return nil, nil, fmt.Errorf("loading client: %w", err)
	}
	if !client.IsActive {
		return nil, nil, ErrClientInactive
	}

	return &tenant, &client, nil
}

func (s *Service) upsertUser(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	user = models.User{Email: email, Role: "owner"}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &user, nil
}

// IssuePlatformToken mints a platform token reflecting the user's current
// profile state.
func (s *Service) IssuePlatformToken(user *models.User) (string, error) {
	return s.jwt.IssuePlatform(PlatformIdentity{
		UserID:          user.ID,
		Email:           user.Email,
		ProfileComplete: user.ProfileComplete(),
	})
}

type ProfileInput struct {
	FirstName string
	LastName  string
	Phone     string
}

// CompleteProfile stores the owner's details and activates the account.
// Input is expected to be validated by the caller.
func (s *Service) CompleteProfile(ctx context.Context, userID uint, input ProfileInput) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	phone := strings.TrimSpace(input.Phone)

	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"first_name": first,
		"last_name":  last,
		"phone":      phone,
		"is_active":  true,
	}).Error; err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	user.FirstName = &first
	user.LastName = &last
	user.Phone = &phone
	user.IsActive = true

	return user, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetClient loads a client together with its tenant.
func (s *Service) GetClient(ctx context.Context, id ClientIdentity) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("id = ? AND tenant_id = ?", id.ClientID, id.TenantID).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}
