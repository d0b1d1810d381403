package auth

import (
	"context"
	"net/http"

	"github.com/hugh/gymhub/internal/database/models"
)

// Authenticator defines the interface for login and account operations.
type Authenticator interface {
	AuthCodeURL(flow Flow, state string) string
	LoginPlatform(ctx context.Context, code string) (*PlatformLogin, error)
	LoginClient(ctx context.Context, code, state string) (*ClientLogin, error)
	CompleteProfile(ctx context.Context, userID uint, input ProfileInput) (*models.User, error)
	IssuePlatformToken(user *models.User) (string, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetClient(ctx context.Context, id ClientIdentity) (*models.Client, error)
}

// TokenService defines the interface for session token operations.
type TokenService interface {
	IssuePlatform(id PlatformIdentity) (string, error)
	IssueClient(id ClientIdentity) (string, error)
	Decode(tokenString string) (Identity, error)
}

// SessionValidator authenticates a request for a resolved tenant ("" for
// the platform).
type SessionValidator interface {
	Validate(ctx context.Context, r *http.Request, tenant string) (Identity, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator    = (*Service)(nil)
	_ TokenService     = (*JWTService)(nil)
	_ SessionValidator = (*Validator)(nil)
	_ IdentityProvider = (*GoogleProvider)(nil)
)
