package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port           string
	Env            string
	AllowedOrigins []string
	MigrationsDir  string

	// Database
	DatabaseURL string
	DBMaxConns  int

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Google sign-in
	GoogleClientID string

	// Gemini AI (optional: question generation is disabled without a key)
	GeminiAPIKey         string
	GeminiConcurrentReqs int
	WorkerCount          int

	// RabbitMQ (optional: events stay in process without a URL)
	RabbitMQURL string

	// Quiz
	QuestionTimeLimit time.Duration
	FeedbackDelay     time.Duration
	QuizQuestionCount int
	SessionIdleTTL    time.Duration
	GuestProfileTTL   time.Duration
	LeaderboardLimit  int

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		Env:            getEnvOrDefault("ENV", "development"),
		AllowedOrigins: getEnvAsListOrDefault("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		MigrationsDir:  getEnvOrDefault("MIGRATIONS_DIR", "migrations"),

		DatabaseURL: mustGetEnv("DATABASE_URL"),
		DBMaxConns:  getEnvAsIntOrDefault("DB_MAX_CONNS", 25),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		GoogleClientID: getEnvOrDefault("GOOGLE_CLIENT_ID", ""),

		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 2),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 2),

		RabbitMQURL: getEnvOrDefault("RABBITMQ_URL", ""),

		QuestionTimeLimit: getEnvAsDurationOrDefault("QUESTION_TIME_LIMIT", 30*time.Second),
		FeedbackDelay:     getEnvAsDurationOrDefault("FEEDBACK_DELAY", 1500*time.Millisecond),
		QuizQuestionCount: getEnvAsIntOrDefault("QUIZ_QUESTION_COUNT", 10),
		SessionIdleTTL:    getEnvAsDurationOrDefault("SESSION_IDLE_TTL", 30*time.Minute),
		GuestProfileTTL:   getEnvAsDurationOrDefault("GUEST_PROFILE_TTL", 90*24*time.Hour),
		LeaderboardLimit:  getEnvAsIntOrDefault("LEADERBOARD_LIMIT", 10),

		SMTPHost: getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort: getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser: getEnvOrDefault("SMTP_USER", ""),
		SMTPPass: getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom: getEnvOrDefault("SMTP_FROM", "noreply@sportstrivia.app"),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go durations ("45s") or plain seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
