package main

import (
	"context"
	"log"

	"realestate/internal/config"
	"realestate/internal/database"
	"realestate/internal/domain"
	"realestate/internal/repository"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	email    string
	password string
	name     string
	role     domain.UserRole
	code     string
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := repository.Migrate(db); err != nil {
		log.Fatal("migrate failed:", err)
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	seeds := []seedUser{
		{email: "admin@realestate.local", password: "admin123", name: "Administrator", role: domain.RoleAdmin},
		{email: "broker@realestate.local", password: "broker123", name: "Referring Broker", role: domain.RoleBroker, code: "REF00001"},
		{email: "customer@realestate.local", password: "customer123", name: "Customer", role: domain.RoleCustomer},
	}

	for _, s := range seeds {
		exists, err := users.ExistsByEmail(ctx, s.email)
		if err != nil {
			log.Fatalf("lookup %s: %v", s.email, err)
		}
		if exists {
			log.Printf("skip %s: already present", s.email)
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal(err)
		}

		u := &domain.User{
			Email:        s.email,
			PasswordHash: string(hash),
			Name:         s.name,
			Role:         s.role,
		}
		if s.code != "" {
			code := s.code
			u.ReferralCode = &code
		}

		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create %s: %v", s.email, err)
		}
		log.Printf("%s created: %s / %s", s.role, s.email, s.password)
	}

	log.Println("Seed completed")
}
