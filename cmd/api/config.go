package main

import (
	"os"
	"strconv"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/auth"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/redis"
	"github.com/artur-silva-empresa/Texdex/pkg/kafka"
	"github.com/artur-silva-empresa/Texdex/pkg/mongodb"
)

// Config holds the API configuration, read from the environment
type Config struct {
	ServerAddr     string
	MongoDB        *mongodb.Config
	Kafka          *kafka.Config
	KafkaEnabled   bool
	Redis          *redis.Config
	JWTSecret      string
	TokenTTL       time.Duration
	UsersFile      string
	Location       *time.Location
	MergeTimeout   time.Duration
	MaxUploadBytes int64
}

func loadConfig() (*Config, error) {
	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, err
	}

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = kafka.ParseBrokers(getEnv("KAFKA_BROKERS", "localhost:9092"))
	kafkaConfig.ClientID = serviceName

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)

	config := &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		MongoDB:        mongoConfig,
		Kafka:          kafkaConfig,
		KafkaEnabled:   getEnv("KAFKA_ENABLED", "false") == "true",
		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       getDuration("TOKEN_TTL", auth.DefaultTokenTTL),
		UsersFile:      getEnv("USERS_FILE", ""),
		Location:       loc,
		MergeTimeout:   getDuration("MERGE_TIMEOUT", 5*time.Minute),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_MB", 50)) << 20,
	}

	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		config.Redis = &redis.Config{
			Addr:     addr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", redis.DefaultChannel),
		}
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
