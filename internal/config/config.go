package config

import (
	"os"
	"strings"
	"time"
)

const (
	ServiceName = "storefront"

	OrderConfirmedTopic = "order-confirmed"

	MySQLMaxOpenConns    = 50
	MySQLMaxIdleConns    = 25
	MySQLConnMaxLifetime = 5 * time.Minute
	RedisPoolSize        = 100

	ShutdownTimeout = 5 * time.Second
)

// Config holds the environment-specific settings; policy constants live
// with the code that applies them.
type Config struct {
	HTTPAddr     string
	MySQLDSN     string
	RedisAddr    string
	KafkaBrokers []string // empty disables notifications
}

func Load() Config {
	cfg := Config{
		HTTPAddr:  getEnvOrDefault("HTTP_ADDR", ":8080"),
		MySQLDSN:  getEnvOrDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true"),
		RedisAddr: getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
