package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v7"
)

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
)

// ServerConf holds server configuration
type ServerConf struct {
	Port           string        `env:"PORT" envDefault:"3001"`
	Env            string        `env:"APP_ENV" envDefault:"development"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	BodyLimit      string        `env:"BODY_LIMIT" envDefault:"1M"`
}

// WebhookConf holds the shared secret used to verify inbound webhooks
type WebhookConf struct {
	Secret    string        `env:"WEBHOOK_SECRET"`
	Tolerance time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"5m"`
}

// StoreConf selects the persistence backend
type StoreConf struct {
	Driver string `env:"STORE_DRIVER" envDefault:"mongo"`
}

// MongoConf holds document store configuration
type MongoConf struct {
	URL        string `env:"MONGO_URL" envDefault:"mongodb://localhost:27017"`
	Database   string `env:"MONGO_DATABASE" envDefault:"webhooks"`
	Collection string `env:"MONGO_COLLECTION" envDefault:"users"`
}

// DatabaseConf holds Postgres configuration, used when STORE_DRIVER=postgres
type DatabaseConf struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:""`
	Name     string `env:"DB_NAME" envDefault:"webhooks"`
}

// RedisConf enables the delivery replay guard when URL is set
type RedisConf struct {
	URL string `env:"REDIS_URL"`
}

// AppConfig holds all application configuration. It is built once at
// startup and passed explicitly; nothing reads the environment afterwards.
type AppConfig struct {
	Server   ServerConf
	Webhook  WebhookConf
	Store    StoreConf
	Mongo    MongoConf
	Database DatabaseConf
	Redis    RedisConf
	RabbitMQ RabbitMQConf
}

// ConfigError is a fatal configuration problem that must stop startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// Load parses the environment for API mode and validates it
func Load() (*AppConfig, error) {
	return load((*AppConfig).Validate)
}

// LoadConsumer parses the environment for consumer mode. Webhook and store
// settings are not used there and are not validated.
func LoadConsumer() (*AppConfig, error) {
	return load((*AppConfig).ValidateConsumer)
}

func load(validate func(*AppConfig) error) (*AppConfig, error) {
	log.Println("🔧 Initializing application configuration...")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Println("✅ Configuration initialized successfully")
	return &cfg, nil
}

// ValidateConsumer validates what the consumer needs: RabbitMQ only
func (c *AppConfig) ValidateConsumer() error {
	if !c.RabbitMQ.Enabled {
		return &ConfigError{Field: "RABBITMQ_ENABLED", Reason: "must be true to run the consumer"}
	}
	return c.RabbitMQ.ValidateRabbitMQConfig()
}

// Validate validates the configuration the API server needs
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Webhook.Secret) == "" {
		return &ConfigError{Field: "WEBHOOK_SECRET", Reason: "is required"}
	}
	if c.Webhook.Tolerance <= 0 {
		return &ConfigError{Field: "WEBHOOK_TOLERANCE", Reason: "must be positive"}
	}
	if c.Server.Port == "" {
		return &ConfigError{Field: "PORT", Reason: "is required"}
	}
	if c.Server.RequestTimeout <= 0 {
		return &ConfigError{Field: "REQUEST_TIMEOUT", Reason: "must be positive"}
	}

	switch c.Store.Driver {
	case StoreDriverMongo:
		if c.Mongo.URL == "" {
			return &ConfigError{Field: "MONGO_URL", Reason: "is required"}
		}
		if c.Mongo.Database == "" || c.Mongo.Collection == "" {
			return &ConfigError{Field: "MONGO_DATABASE/MONGO_COLLECTION", Reason: "are required"}
		}
	case StoreDriverPostgres:
		requiredDBFields := map[string]string{
			"DB_HOST":     c.Database.Host,
			"DB_PORT":     c.Database.Port,
			"DB_USER":     c.Database.User,
			"DB_PASSWORD": c.Database.Password,
			"DB_NAME":     c.Database.Name,
		}
		for field, value := range requiredDBFields {
			if value == "" {
				return &ConfigError{Field: field, Reason: "is required"}
			}
		}
	default:
		return &ConfigError{Field: "STORE_DRIVER", Reason: fmt.Sprintf("must be %q or %q, got %q", StoreDriverMongo, StoreDriverPostgres, c.Store.Driver)}
	}

	if c.RabbitMQ.Enabled {
		if err := c.RabbitMQ.ValidateRabbitMQConfig(); err != nil {
			return err
		}
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (d *DatabaseConf) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		d.Host,
		d.User,
		d.Password,
		d.Name,
		d.Port,
	)
}

// IsProduction returns true if running in production environment
func (s *ServerConf) IsProduction() bool {
	return s.Env == "production" || s.Env == "prod"
}

// IsDevelopment returns true if running in development environment
func (s *ServerConf) IsDevelopment() bool {
	return s.Env == "development" || s.Env == "dev"
}

// IsTest returns true if running in test environment
func (s *ServerConf) IsTest() bool {
	return s.Env == "test"
}

// PrintConfig prints the current configuration (excluding sensitive data)
func (c *AppConfig) PrintConfig() {
	log.Println("📋 Current Configuration:")
	log.Printf("   Environment: %s", c.Server.Env)
	log.Printf("   Server Port: %s", c.Server.Port)
	log.Printf("   Request Timeout: %s", c.Server.RequestTimeout)
	log.Printf("   Webhook Tolerance: %s", c.Webhook.Tolerance)
	log.Printf("   Store Driver: %s", c.Store.Driver)
	switch c.Store.Driver {
	case StoreDriverMongo:
		log.Printf("   Mongo Database: %s.%s", c.Mongo.Database, c.Mongo.Collection)
	case StoreDriverPostgres:
		log.Printf("   Database Host: %s:%s", c.Database.Host, c.Database.Port)
		log.Printf("   Database Name: %s", c.Database.Name)
	}
	log.Printf("   Replay Guard: %t", c.Redis.URL != "")
	log.Printf("   RabbitMQ Enabled: %t", c.RabbitMQ.Enabled)
	if c.RabbitMQ.Enabled {
		log.Printf("   RabbitMQ Host: %s:%s", c.RabbitMQ.Host, c.RabbitMQ.Port)
		log.Printf("   RabbitMQ Exchange: %s", c.RabbitMQ.Exchange)
	}
}

// GetEnv returns environment variable value or default
func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
