package main

import (
	"context"
	"flag"
	"log"
	"time"

	"realestate/internal/config"
	"realestate/internal/database"
	"realestate/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	retention := flag.Duration("retention", 90*24*time.Hour, "keep adjudicated applications at least this long")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx := context.Background()
	now := time.Now()

	cutoff := now.Add(-*retention)
	apps, err := repository.NewBrokerApplicationRepository(db).PurgeResolvedBefore(ctx, cutoff)
	if err != nil {
		log.Fatalf("cleanup broker_applications failed: %v", err)
	}

	tokens, err := repository.NewPasswordResetRepository(db).PurgeExpired(ctx, now)
	if err != nil {
		log.Fatalf("cleanup password_reset_tokens failed: %v", err)
	}

	log.Printf("application cleanup completed: broker_applications=%d password_reset_tokens=%d cutoff=%s",
		apps, tokens, cutoff.Format(time.RFC3339))
}
