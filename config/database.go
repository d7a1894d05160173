package config

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts      = 10
	connectRetryInterval = 3 * time.Second
	pingTimeout          = 5 * time.Second
)

// withRetry runs connect until it succeeds or attempts run out
func withRetry(name string, attempts int, interval time.Duration, connect func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = connect(); err == nil {
			return nil
		}

		if attempt < attempts {
			log.Printf("⏳ %s not ready (attempt %d/%d): %v. Retrying in %v...",
				name, attempt, attempts, err, interval)
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("failed to connect to %s after %d attempts: %w", name, attempts, err)
}

// ConnectMongo opens a client against MONGO_URL and pings the primary
func ConnectMongo(ctx context.Context, cfg MongoConf) (*mongo.Client, error) {
	log.Println("🔌 Connecting to MongoDB...")

	var client *mongo.Client
	err := withRetry("MongoDB", connectAttempts, connectRetryInterval, func() error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
		if err != nil {
			return err
		}

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := c.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = c.Disconnect(ctx)
			return err
		}

		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Println("✅ MongoDB connected successfully")
	log.Printf("   Database: %s", cfg.Database)
	return client, nil
}

// ConnectPostgres opens a GORM connection with a configured pool
func ConnectPostgres(server ServerConf, cfg DatabaseConf) (*gorm.DB, error) {
	if err := validateTestEnvironment(server, cfg); err != nil {
		return nil, err
	}

	gormLogger := logger.Default.LogMode(logger.Info)
	if server.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	log.Println("🔌 Connecting to database...")

	var db *gorm.DB
	err := withRetry("database", connectAttempts, connectRetryInterval, func() error {
		opened, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
			Logger: gormLogger,
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		if err != nil {
			return err
		}

		sqlDB, err := opened.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Ping(); err != nil {
			return err
		}

		db = opened
		return nil
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("✅ Database connected successfully")
	log.Printf("   Host: %s:%s", cfg.Host, cfg.Port)
	log.Printf("   Database: %s", cfg.Name)

	return db, nil
}

// validateTestEnvironment ensures test databases are properly configured
func validateTestEnvironment(server ServerConf, cfg DatabaseConf) error {
	if server.IsTest() && !strings.HasSuffix(cfg.Name, "_test") {
		return fmt.Errorf(
			"APP_ENV=test but DB_NAME (%s) is not a test database. "+
				"Test database names must end with '_test'",
			cfg.Name,
		)
	}

	if !server.IsProduction() {
		for _, indicator := range []string{"prod", "production"} {
			if strings.Contains(strings.ToLower(cfg.Name), indicator) {
				log.Printf("⚠️  WARNING: Using production-like database name (%s) in %s environment",
					cfg.Name, server.Env)
				break
			}
		}
	}

	return nil
}

// ConnectRedis returns a client for REDIS_URL, or nil when the URL is empty
func ConnectRedis(ctx context.Context, cfg RedisConf) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &ConfigError{Field: "REDIS_URL", Reason: err.Error()}
	}

	log.Println("🔌 Connecting to Redis...")

	client := redis.NewClient(opts)
	err = withRetry("Redis", 5, 2*time.Second, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Println("✅ Redis connected successfully")
	return client, nil
}
