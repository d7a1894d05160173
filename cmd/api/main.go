package main

import (
	"log"

	"user-webhook-sync/config"
	"user-webhook-sync/server"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to initialize configuration: %v", err)
	}

	if cfg.Server.IsDevelopment() {
		cfg.PrintConfig()
	}

	if err := server.RunAPI(cfg); err != nil {
		log.Fatalf("❌ API server failed: %v", err)
	}
}
