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

	cfg, err := config.LoadConsumer()
	if err != nil {
		log.Fatalf("❌ Failed to initialize configuration: %v", err)
	}

	if cfg.Server.IsDevelopment() {
		cfg.PrintConfig()
	}

	if err := server.RunConsumer(cfg); err != nil {
		log.Fatalf("❌ Consumer failed: %v", err)
	}
}
