package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"realestate/internal/config"
	"realestate/internal/database"
	"realestate/internal/repository"
	"realestate/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	if err := repository.Migrate(db); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, db).Run(ctx); err != nil {
		log.Fatal(err)
	}
}
