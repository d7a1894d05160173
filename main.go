package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"user-webhook-sync/config"
	"user-webhook-sync/server"

	"github.com/joho/godotenv"
)

const (
	modeAPI      = "api"
	modeConsumer = "consumer"
)

func main() {
	mode := parseMode(os.Args[1:])

	cfg, err := loadConfig(mode)
	if err != nil {
		log.Fatalf("❌ Failed to initialize configuration: %v", err)
	}

	if cfg.Server.IsDevelopment() {
		cfg.PrintConfig()
	}

	switch mode {
	case modeAPI:
		err = server.RunAPI(cfg)
	case modeConsumer:
		err = server.RunConsumer(cfg)
	}
	if err != nil {
		log.Fatalf("❌ %s mode failed: %v", mode, err)
	}
}

// parseMode loads .env before reading APP_MODE, so the file can pick the
// mode. The -mode flag overrides both.
func parseMode(args []string, envFiles ...string) string {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	fs := flag.NewFlagSet("user-webhook-sync", flag.ExitOnError)
	mode := fs.String("mode", config.GetEnv("APP_MODE", modeAPI), "Run mode: 'api' or 'consumer'")
	_ = fs.Parse(args)
	return *mode
}

func loadConfig(mode string) (*config.AppConfig, error) {
	switch mode {
	case modeAPI:
		return config.Load()
	case modeConsumer:
		return config.LoadConsumer()
	default:
		return nil, fmt.Errorf("invalid mode %q, use 'api' or 'consumer'", mode)
	}
}
