package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/database"
	"github.com/hugh/gymhub/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestJWTSecret = "test-secret-key-for-testing"

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"), logger.Silent)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// CreateTestUser creates an owner with a completed profile.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Email:     "owner-" + uuid.New().String()[:8] + "@example.com",
		FirstName: strPtr("Test"),
		LastName:  strPtr("Owner"),
		Phone:     strPtr("5551234567"),
		Role:      "owner",
		IsActive:  true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateIncompleteUser creates an owner who has not completed onboarding.
func CreateIncompleteUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Email: "new-" + uuid.New().String()[:8] + "@example.com",
		Role:  "owner",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTenant creates an active gym owned by owner.
func CreateTestTenant(t *testing.T, db *gorm.DB, owner *models.User, slug string) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		Name:     strings.ToUpper(slug[:1]) + slug[1:] + " Gym",
		Slug:     slug,
		OwnerID:  owner.ID,
		IsActive: true,
	}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("failed to create test tenant: %v", err)
	}
	return tenant
}

// CreateTestClient creates an active client of tenant.
func CreateTestClient(t *testing.T, db *gorm.DB, tenant *models.Tenant, email string) *models.Client {
	t.Helper()

	client := &models.Client{
		TenantID: tenant.ID,
		Name:     "Test Client",
		Email:    strPtr(email),
		IsActive: true,
	}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}
	return client
}

// SetActive flips IsActive on a tenant, client or user.
func SetActive(t *testing.T, db *gorm.DB, model interface{}, active bool) {
	t.Helper()
	if err := db.Model(model).Update("is_active", active).Error; err != nil {
		t.Fatalf("failed to update is_active: %v", err)
	}
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService(TestJWTSecret, "gymhub", 30*24*time.Hour)
}

// PlatformToken mints a platform token for user.
func PlatformToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.IssuePlatform(auth.PlatformIdentity{
		UserID:          user.ID,
		Email:           user.Email,
		ProfileComplete: user.ProfileComplete(),
	})
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// ClientToken mints a tenant-client token for client at tenant.
func ClientToken(t *testing.T, jwtService *auth.JWTService, client *models.Client, tenant *models.Tenant) string {
	t.Helper()

	email := ""
	if client.Email != nil {
		email = *client.Email
	}
	token, err := jwtService.IssueClient(auth.ClientIdentity{
		ClientID:   client.ID,
		Email:      email,
		Role:       "client",
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
	})
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// FakeProvider is an IdentityProvider backed by a code to email map.
type FakeProvider struct {
	mu     sync.Mutex
	Emails map[string]string
	Err    error
	Calls  int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{Emails: map[string]string{}}
}

func (f *FakeProvider) AuthCodeURL(flow auth.Flow, state string) string {
	return "https://accounts.example.test/auth?flow=" + string(flow) + "&state=" + url.QueryEscape(state)
}

func (f *FakeProvider) VerifiedEmail(ctx context.Context, flow auth.Flow, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if f.Err != nil {
		return "", f.Err
	}
	email, ok := f.Emails[code]
	if !ok {
		return "", auth.ErrNoAccessToken
	}
	if email == "" {
		return "", auth.ErrNoEmail
	}
	return email, nil
}

// EventRecorder is an EventSink that keeps published events in memory.
type EventRecorder struct {
	mu     sync.Mutex
	Events []auth.RejectionEvent
}

func (r *EventRecorder) PublishRejection(ctx context.Context, ev auth.RejectionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
	return nil
}

func (r *EventRecorder) Snapshot() []auth.RejectionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]auth.RejectionEvent(nil), r.Events...)
}

// JSONRequest creates an HTTP request with a JSON body.
func JSONRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithCookie adds a session cookie to req.
func WithCookie(req *http.Request, name, value string) *http.Request {
	req.AddCookie(&http.Cookie{Name: name, Value: value})
	return req
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// FindCookie returns the named Set-Cookie of a response, or nil.
func FindCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Provider   *FakeProvider
	Events     *EventRecorder
	Logger     *slog.Logger
	User       *models.User
	Tenant     *models.Tenant
	Client     *models.Client
}

// NewTestContext creates a complete setup: an owner with gym "gold" and one
// active client "member@example.com".
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	user := CreateTestUser(t, db)
	tenant := CreateTestTenant(t, db, user, "gold")
	client := CreateTestClient(t, db, tenant, "member@example.com")

	return &TestSetup{
		DB:         db,
		JWTService: CreateTestJWTService(),
		Provider:   NewFakeProvider(),
		Events:     &EventRecorder{},
		Logger:     Logger(),
		User:       user,
		Tenant:     tenant,
		Client:     client,
	}
}

// AuthService builds an auth.Service over the setup's fakes.
func (ts *TestSetup) AuthService() *auth.Service {
	return auth.NewService(ts.DB, ts.JWTService, ts.Provider, ts.Logger)
}

// Validator builds an auth.Validator publishing into ts.Events.
func (ts *TestSetup) Validator() *auth.Validator {
	return auth.NewValidator(ts.DB, ts.JWTService, ts.Events, ts.Logger)
}
