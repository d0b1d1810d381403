//go:build ignore

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hugh/gymhub/internal/api"
	"github.com/hugh/gymhub/internal/api/validation"
	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/database"
	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/internal/tenancy"
	"github.com/hugh/gymhub/pkg/config"
	"github.com/hugh/gymhub/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ownerEmail := envOr("SEED_OWNER_EMAIL", "owner@example.com")
	slug := validation.NormalizeSlug(envOr("SEED_GYM_SLUG", "demo"))
	clientEmail := envOr("SEED_CLIENT_EMAIL", "member@example.com")

	if ok, msg := validation.IsValidSlug(slug, tenancy.NewResolver().UnavailableSlugs(append(cfg.Tenancy.ReservedSubdomains, api.PlatformPages...)...)); !ok {
		log.Fatalf("invalid SEED_GYM_SLUG %q: %s", slug, msg)
	}

	first, last, phone := "Demo", "Owner", "+15550100"
	owner := models.User{Email: ownerEmail}
	if err := db.Where(models.User{Email: ownerEmail}).
		Attrs(models.User{Role: "owner", FirstName: &first, LastName: &last, Phone: &phone, IsActive: true}).
		FirstOrCreate(&owner).Error; err != nil {
		log.Fatalf("failed to create owner: %v", err)
	}

	gym := models.Tenant{Slug: slug}
	if err := db.Where(models.Tenant{Slug: slug}).
		Attrs(models.Tenant{Name: "Demo Gym", OwnerID: owner.ID, IsActive: true}).
		FirstOrCreate(&gym).Error; err != nil {
		log.Fatalf("failed to create gym: %v", err)
	}
	if gym.OwnerID != owner.ID {
		log.Fatalf("gym %q already belongs to another owner", slug)
	}

	client := models.Client{TenantID: gym.ID, Email: &clientEmail}
	if err := db.Where("tenant_id = ? AND email = ?", gym.ID, clientEmail).
		Attrs(models.Client{Name: "Demo Member", IsActive: true}).
		FirstOrCreate(&client).Error; err != nil {
		log.Fatalf("failed to create client: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService, nil, logger)

	ownerToken, err := authService.IssuePlatformToken(&owner)
	if err != nil {
		log.Fatalf("failed to issue owner token: %v", err)
	}
	clientToken, err := jwtService.IssueClient(auth.ClientIdentity{
		ClientID:   client.ID,
		Email:      clientEmail,
		TenantID:   gym.ID,
		TenantSlug: gym.Slug,
	})
	if err != nil {
		log.Fatalf("failed to issue client token: %v", err)
	}

	fmt.Printf("Seed complete!\n")
	fmt.Printf("Owner: %s\n", owner.Email)
	fmt.Printf("Gym: %s (%s)\n", gym.Name, cfg.Tenancy.TenantURL(gym.Slug, "/"))
	fmt.Printf("Client: %s\n", clientEmail)
	fmt.Printf("Owner token: %s\n", ownerToken)
	fmt.Printf("Client token: %s\n", clientToken)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
