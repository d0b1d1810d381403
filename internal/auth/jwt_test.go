package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hugh/gymhub/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_IssuePlatform(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", "gymhub", 24*time.Hour)

	token, err := jwtService.IssuePlatform(auth.PlatformIdentity{UserID: 7, Email: "owner@example.com", ProfileComplete: true})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	t.Run("claims carry kind and no tenant", func(t *testing.T) {
		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, auth.KindPlatform, claims.Kind)
		assert.Equal(t, "owner@example.com", claims.Email)
		assert.Empty(t, claims.TenantSlug)
		assert.Zero(t, claims.TenantID)
		assert.Equal(t, "gymhub", claims.Issuer)
		assert.Equal(t, "7", claims.Subject)
	})

	t.Run("decodes to platform identity", func(t *testing.T) {
		id, err := jwtService.Decode(token)
		require.NoError(t, err)

		p, ok := id.(auth.PlatformIdentity)
		require.True(t, ok)
		assert.Equal(t, uint(7), p.UserID)
		assert.True(t, p.ProfileComplete)
	})
}

func TestJWTService_IssueClient(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", "gymhub", 24*time.Hour)

	token, err := jwtService.IssueClient(auth.ClientIdentity{
		ClientID: 3, Email: "m@example.com", TenantID: 9, TenantSlug: "iron-works",
	})
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, auth.KindTenantClient, claims.Kind)
	assert.Equal(t, "iron-works", claims.TenantSlug)
	assert.Equal(t, uint(9), claims.TenantID)
	assert.Equal(t, jwt.ClaimStrings{"iron-works"}, claims.Audience)
	assert.Equal(t, "client", claims.Role)

	id, err := jwtService.Decode(token)
	require.NoError(t, err)
	c, ok := id.(auth.ClientIdentity)
	require.True(t, ok)
	assert.Equal(t, uint(3), c.ClientID)
	assert.Equal(t, uint(3), c.Subject())
	assert.Equal(t, "iron-works", c.TenantSlug)
}

func TestJWTService_IssueClientRequiresTenant(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", "gymhub", time.Hour)

	_, err := jwtService.IssueClient(auth.ClientIdentity{ClientID: 1})
	assert.Error(t, err)
}

func TestJWTService_ValidateToken(t *testing.T) {
	identity := auth.PlatformIdentity{UserID: 1, Email: "test@example.com"}

	t.Run("rejects expired token", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", "gymhub", 1*time.Millisecond)

		token, err := jwtService.IssuePlatform(identity)
		require.NoError(t, err)

		time.Sleep(1100 * time.Millisecond)

		_, err = jwtService.ValidateToken(token)
		assert.Equal(t, auth.ErrExpiredToken, err)
	})

	t.Run("rejects tampered token", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", "gymhub", 24*time.Hour)

		token, err := jwtService.IssuePlatform(identity)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token + "tampered")
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	t.Run("rejects token signed with different secret", func(t *testing.T) {
		jwtService1 := auth.NewJWTService("secret-1", "gymhub", 24*time.Hour)
		jwtService2 := auth.NewJWTService("secret-2", "gymhub", 24*time.Hour)

		token, err := jwtService1.IssuePlatform(identity)
		require.NoError(t, err)

		_, err = jwtService2.ValidateToken(token)
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	t.Run("rejects token from another issuer", func(t *testing.T) {
		other := auth.NewJWTService("test-secret", "someone-else", 24*time.Hour)
		jwtService := auth.NewJWTService("test-secret", "gymhub", 24*time.Hour)

		token, err := other.IssuePlatform(identity)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token)
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	t.Run("rejects none algorithm", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", "gymhub", 24*time.Hour)

		claims := auth.Claims{Kind: auth.KindPlatform, RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gymhub",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(unsigned)
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	t.Run("rejects malformed and empty tokens", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", "gymhub", 24*time.Hour)

		_, err := jwtService.ValidateToken("not-a-valid-jwt")
		assert.Equal(t, auth.ErrInvalidToken, err)

		_, err = jwtService.ValidateToken("")
		assert.Equal(t, auth.ErrInvalidToken, err)
	})
}

func TestClaims_Identity(t *testing.T) {
	tests := []struct {
		name   string
		claims auth.Claims
		valid  bool
	}{
		{"platform", auth.Claims{Kind: auth.KindPlatform, RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}, true},
		{"platform with tenant", auth.Claims{Kind: auth.KindPlatform, TenantSlug: "gold", RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}, false},
		{"client", auth.Claims{Kind: auth.KindTenantClient, TenantID: 1, TenantSlug: "gold", RegisteredClaims: jwt.RegisteredClaims{Subject: "2"}}, true},
		{"client without tenant", auth.Claims{Kind: auth.KindTenantClient, RegisteredClaims: jwt.RegisteredClaims{Subject: "2"}}, false},
		{"unknown kind", auth.Claims{Kind: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}, false},
		{"missing kind", auth.Claims{TenantSlug: "gold", TenantID: 1, RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}, false},
		{"bad subject", auth.Claims{Kind: auth.KindPlatform, RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}, false},
		{"zero subject", auth.Claims{Kind: auth.KindPlatform, RegisteredClaims: jwt.RegisteredClaims{Subject: "0"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.claims.Identity()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, auth.ErrInvalidToken)
			}
		})
	}
}
