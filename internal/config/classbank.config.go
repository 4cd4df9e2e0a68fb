package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr string
	Env      string

	RedisAddr string
	RedisPass string

	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	SessionTTL time.Duration

	// Kafka audit stream is optional; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	SeedTeacherUsername string
	SeedTeacherPassword string
	SeedTeacherName     string

	MachineID int64
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("ClassBank: No .env file found, relying on system env vars")
	}

	tokenTTL, _ := time.ParseDuration(getEnv("JWT_ACCESS_TTL", "15m"))
	sessionTTL, _ := time.ParseDuration(getEnv("SESSION_TTL", "8h"))

	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Env:      getEnv("APP_ENV", "development"),

		RedisAddr: getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		JWTSecret:  getEnv("JWT_SECRET", "classbank-dev-secret"),
		JWTIssuer:  getEnv("JWT_ISSUER", "classbank"),
		TokenTTL:   tokenTTL,
		SessionTTL: sessionTTL,

		KafkaBrokers: getEnvSlice("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "classbank.ledger"),

		SeedTeacherUsername: getEnv("SEED_TEACHER_USERNAME", "teacher"),
		SeedTeacherPassword: getEnv("SEED_TEACHER_PASSWORD", "changeme"),
		SeedTeacherName:     getEnv("SEED_TEACHER_NAME", "Class Teacher"),

		MachineID: getEnvInt64("MACHINE_ID", 1),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
