package certs

import (
	"context"
	"testing"

	"github.com/hugh/gymhub/internal/tenancy"
	"github.com/hugh/gymhub/internal/testutil"
	"github.com/hugh/gymhub/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPolicy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	owner := testutil.CreateTestUser(t, db)
	testutil.CreateTestTenant(t, db, owner, "gold")
	closed := testutil.CreateTestTenant(t, db, owner, "closed")
	testutil.SetActive(t, db, closed, false)

	policy := HostPolicy(db, tenancy.NewResolver(), "gymhub.io")
	ctx := context.Background()

	tests := []struct {
		host    string
		allowed bool
	}{
		{"gymhub.io", true},
		{"GymHub.io.", true},
		{"www.gymhub.io", true},
		{"gold.gymhub.io", true},
		{"GOLD.gymhub.io", true},
		{"closed.gymhub.io", false},
		{"unknown.gymhub.io", false},
		{"a.gold.gymhub.io", false},
		{"gold.example.com", false},
		{"evilgymhub.io", false},
		{"go_ld.gymhub.io", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := policy(ctx, tt.host)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrHostNotAllowed)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	cfg := &config.TLSConfig{CacheDir: t.TempDir(), Email: "ops@gymhub.io"}
	m := NewManager(cfg, func(ctx context.Context, host string) error { return nil })

	require.NotNil(t, m)
	assert.Equal(t, "ops@gymhub.io", m.Email)
	assert.NotNil(t, m.Cache)
	assert.NotNil(t, m.HostPolicy)
}
