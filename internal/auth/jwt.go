package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Token kinds. The kind is the discriminant of the session payload and is
// checked before any other claim is trusted.
const (
	KindPlatform     = "platform"
	KindTenantClient = "tenant-client"
)

type Claims struct {
	Kind            string `json:"kind"`
	Email           string `json:"email"`
	Role            string `json:"role,omitempty"`
	TenantID        uint   `json:"tenant_id,omitempty"`
	TenantSlug      string `json:"tenant,omitempty"`
	ProfileComplete bool   `json:"profile_complete,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the decoded session payload. It is either a PlatformIdentity
// or a ClientIdentity.
type Identity interface {
	identity()
	Subject() uint
}

// PlatformIdentity is a gym owner signed in at the root domain.
type PlatformIdentity struct {
	UserID          uint
	Email           string
	ProfileComplete bool
}

// ClientIdentity is a gym member signed in at exactly one tenant.
type ClientIdentity struct {
	ClientID   uint
	Email      string
	Role       string
	TenantID   uint
	TenantSlug string
}

func (PlatformIdentity) identity() {}

func (p PlatformIdentity) Subject() uint { return p.UserID }

func (ClientIdentity) identity() {}

func (c ClientIdentity) Subject() uint { return c.ClientID }

type JWTService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewJWTService(secret, issuer string, expiry time.Duration) *JWTService {
	if issuer == "" {
		issuer = "gymhub"
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// Expiry is the lifetime of issued tokens.
func (s *JWTService) Expiry() time.Duration {
	return s.expiry
}

// IssuePlatform mints a platform token. It never carries tenant claims.
func (s *JWTService) IssuePlatform(id PlatformIdentity) (string, error) {
	claims := Claims{
		Kind:             KindPlatform,
		Email:            id.Email,
		Role:             "owner",
		ProfileComplete:  id.ProfileComplete,
		RegisteredClaims: s.registered(id.UserID),
	}
	return s.sign(claims)
}

// IssueClient mints a tenant-client token bound to one tenant.
func (s *JWTService) IssueClient(id ClientIdentity) (string, error) {
	if id.TenantSlug == "" || id.TenantID == 0 {
		return "", errors.New("client token requires a tenant")
	}
	role := id.Role
	if role == "" {
		role = "client"
	}
	claims := Claims{
		Kind:             KindTenantClient,
		Email:            id.Email,
		Role:             role,
		TenantID:         id.TenantID,
		TenantSlug:       id.TenantSlug,
		RegisteredClaims: s.registered(id.ClientID),
	}
	claims.Audience = jwt.ClaimStrings{id.TenantSlug}
	return s.sign(claims)
}

func (s *JWTService) registered(subject uint) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		Subject:   strconv.FormatUint(uint64(subject), 10),
	}
}

func (s *JWTService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Decode validates a token and converts it into its Identity variant.
// Unknown kinds and variants with missing fields are rejected.
func (s *JWTService) Decode(tokenString string) (Identity, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.Identity()
}

// Identity converts validated claims into the matching Identity variant.
func (c *Claims) Identity() (Identity, error) {
	sub, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || sub == 0 {
		return nil, ErrInvalidToken
	}

	switch c.Kind {
	case KindPlatform:
		if c.TenantSlug != "" || c.TenantID != 0 {
			return nil, ErrInvalidToken
		}
		return PlatformIdentity{
			UserID:          uint(sub),
			Email:           c.Email,
			ProfileComplete: c.ProfileComplete,
		}, nil
	case KindTenantClient:
		if c.TenantSlug == "" || c.TenantID == 0 {
			return nil, ErrInvalidToken
		}
		return ClientIdentity{
			ClientID:   uint(sub),
			Email:      c.Email,
			Role:       c.Role,
			TenantID:   c.TenantID,
			TenantSlug: c.TenantSlug,
		}, nil
	}
	return nil, ErrInvalidToken
}
