package auth_test

import (
	"errors"
	"testing"

	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_LoginClient(t *testing.T) {
	t.Run("binds token to the state tenant", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		ts.Provider.Emails["code-1"] = "member@example.com"

		login, err := ts.AuthService().LoginClient(testutil.TestContext(t), "code-1", "gold")
		require.NoError(t, err)
		assert.Equal(t, ts.Client.ID, login.Client.ID)
		assert.Equal(t, "gold", login.Tenant.Slug)

		id, err := ts.JWTService.Decode(login.Token)
		require.NoError(t, err)
		c, ok := id.(auth.ClientIdentity)
		require.True(t, ok)
		assert.Equal(t, "gold", c.TenantSlug)
		assert.Equal(t, ts.Tenant.ID, c.TenantID)
		assert.Equal(t, ts.Client.ID, c.ClientID)
	})

	t.Run("hyphenated state round-trips byte for byte", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		tenant := testutil.CreateTestTenant(t, ts.DB, ts.User, "iron-works-2")
		testutil.CreateTestClient(t, ts.DB, tenant, "lifter@example.com")
		ts.Provider.Emails["c"] = "lifter@example.com"

		login, err := ts.AuthService().LoginClient(testutil.TestContext(t), "c", "iron-works-2")
		require.NoError(t, err)

		id, err := ts.JWTService.Decode(login.Token)
		require.NoError(t, err)
		assert.Equal(t, "iron-works-2", id.(auth.ClientIdentity).TenantSlug)
	})

	t.Run("missing state", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		_, err := ts.AuthService().LoginClient(testutil.TestContext(t), "code", "")
		assert.ErrorIs(t, err, auth.ErrStateMissing)
		assert.Zero(t, ts.Provider.Calls, "no provider call without state")
	})

	t.Run("unknown tenant", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		ts.Provider.Emails["c"] = "member@example.com"
		_, err := ts.AuthService().LoginClient(testutil.TestContext(t), "c", "nope")
		assert.ErrorIs(t, err, auth.ErrTenantNotFound)
	})

	t.Run("inactive tenant", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		testutil.SetActive(t, ts.DB, ts.Tenant, false)
		ts.Provider.Emails["c"] = "member@example.com"

		_, err := ts.AuthService().LoginClient(testutil.TestContext(t), "c", "gold")
		assert.ErrorIs(t, err, auth.ErrTenantInactive)
	})

	t.Run("email registered at another tenant only", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		silver := testutil.CreateTestTenant(t, ts.DB, ts.User, "silver")
		testutil.CreateTestClient(t, ts.DB, silver, "elsewhere@example.com")
		ts.Provider.Emails["c"] = "elsewhere@example.com"

		_, err := ts.AuthService().LoginClient(testutil.TestContext(t), "c", "gold")
		assert.ErrorIs(t, err, auth.ErrClientNotFound)
	})

	t.Run("inactive client", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		testutil.SetActive(t, ts.DB, ts.Client, false)
		ts.Provider.Emails["c"] = "member@example.com"

		_, err := ts.AuthService().LoginClient(testutil.TestContext(t), "c", "gold")
		assert.ErrorIs(t, err, auth.ErrClientInactive)
	})

	t.Run("provider failure surfaces unchanged", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		ts.Provider.Err = auth.ErrNoEmail

		_, err := ts.AuthService().LoginClient(testutil.TestContext(t), "c", "gold")
		assert.ErrorIs(t, err, auth.ErrNoEmail)
		assert.Equal(t, 1, ts.Provider.Calls)
	})
}

func TestService_LoginPlatform(t *testing.T) {
	t.Run("creates user on first login", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		ts.Provider.Emails["c"] = "newowner@example.com"

		login, err := ts.AuthService().LoginPlatform(testutil.TestContext(t), "c")
		require.NoError(t, err)
		assert.NotZero(t, login.User.ID)
		assert.False(t, login.User.ProfileComplete())

		var count int64
		ts.DB.Model(&models.User{}).Where("email = ?", "newowner@example.com").Count(&count)
		assert.Equal(t, int64(1), count)

		id, err := ts.JWTService.Decode(login.Token)
		require.NoError(t, err)
		p, ok := id.(auth.PlatformIdentity)
		require.True(t, ok)
		assert.Equal(t, login.User.ID, p.UserID)
	})

	t.Run("reuses existing user", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		ts.Provider.Emails["c"] = ts.User.Email

		login, err := ts.AuthService().LoginPlatform(testutil.TestContext(t), "c")
		require.NoError(t, err)
		assert.Equal(t, ts.User.ID, login.User.ID)
		assert.True(t, login.User.ProfileComplete())
	})

	t.Run("provider failure", func(t *testing.T) {
		ts := testutil.NewTestContext(t)
		_, err := ts.AuthService().LoginPlatform(testutil.TestContext(t), "unknown-code")
		assert.True(t, errors.Is(err, auth.ErrNoAccessToken))
	})
}

func TestService_CompleteProfile(t *testing.T) {
	ts := testutil.NewTestContext(t)
	user := testutil.CreateIncompleteUser(t, ts.DB)
	svc := ts.AuthService()

	updated, err := svc.CompleteProfile(testutil.TestContext(t), user.ID, auth.ProfileInput{
		FirstName: " Ada ", LastName: "Lovelace", Phone: "5550001111",
	})
	require.NoError(t, err)
	assert.True(t, updated.ProfileComplete())
	assert.Equal(t, "Ada", *updated.FirstName)

	reloaded, err := svc.GetUserByID(testutil.TestContext(t), user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.ProfileComplete())

	_, err = svc.CompleteProfile(testutil.TestContext(t), 9999, auth.ProfileInput{})
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
