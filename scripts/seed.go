// Command seed creates the indexes and one authority account per department.
// Public registration only creates citizens, so authorities are provisioned here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"civicconnect/internal/config"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
	"civicconnect/internal/utils"
	"civicconnect/pkg/database"

	"github.com/joho/godotenv"
)

type seedConfig struct {
	Domain   string
	Password string
	Address  string
}

func main() {
	log.Println("🚀 Seeding CivicConnect database...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using environment variables")
	}

	cfg := config.Load()
	seed := seedConfig{
		Domain:   getEnv("SEED_AUTHORITY_DOMAIN", "civicconnect.local"),
		Password: os.Getenv("SEED_AUTHORITY_PASSWORD"),
		Address:  getEnv("SEED_AUTHORITY_ADDRESS", "Municipal Office"),
	}
	if len(seed.Password) < 6 {
		log.Fatal("❌ SEED_AUTHORITY_PASSWORD must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := database.InitMongoDB(cfg.Database.MongoDB); err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer database.Disconnect(context.Background())

	db := database.GetDatabase()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("❌ Failed to create indexes: %v", err)
	}
	log.Println("✅ Indexes ready")

	users := store.NewMongo(db).Users
	created, err := seedAuthorities(ctx, users, seed)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✅ Seed completed, %d authority accounts created", created)
	log.Println("⚠️  IMPORTANT: Change the seeded passwords after first login!")
}

// seedAuthorities creates a department-wide account for each department plus one
// unscoped account. Existing emails are left untouched.
func seedAuthorities(ctx context.Context, users store.UserStore, seed seedConfig) (int, error) {
	hash, err := utils.HashPassword(seed.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	accounts := []models.User{{
		UserName:  "City Authority",
		UserEmail: "authority@" + seed.Domain,
	}}
	for _, dept := range models.Departments() {
		accounts = append(accounts, models.User{
			UserName:   dept + " Department",
			UserEmail:  emailSlug(dept) + "@" + seed.Domain,
			Department: dept,
		})
	}

	created := 0
	for _, u := range accounts {
		now := time.Now()
		u.Password = hash
		u.Address = seed.Address
		u.Role = models.RoleAuthority
		u.CreatedAt = now
		u.UpdatedAt = now

		if err := users.Insert(ctx, &u); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				log.Printf("   %s already exists, skipping", u.UserEmail)
				continue
			}
			return created, fmt.Errorf("create %s: %w", u.UserEmail, err)
		}
		created++
		log.Printf("👤 Created %s (%s)", u.UserEmail, departmentLabel(u.Department))
	}
	return created, nil
}

func emailSlug(dept string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(dept)), " ", "-")
}

func departmentLabel(dept string) string {
	if dept == "" {
		return "all departments"
	}
	return dept
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
