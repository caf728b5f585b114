package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Notification preference defaults applied when a user document has no
// explicit setting. The product decision is opt-out: both channels are
// on until the user turns them off, and the per-user score floor
// matches the global match threshold.
const (
	DefaultEmailEnabled  = true
	DefaultPushEnabled   = true
	DefaultMinMatchScore = 0.70
)

type Config struct {
	Port string
	Env  string

	MongoURI      string
	MongoDatabase string

	FirebaseCredentialsPath string

	// CronSecret, when set, is required as a bearer token on the
	// queue-processing endpoints.
	CronSecret string

	// AppBaseURL is the public site URL embedded in match emails.
	AppBaseURL string

	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPassword string
	EmailFrom     string
	EmailUseTLS   bool
}

func Load() *Config {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "tracey"),

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),

		CronSecret: getEnv("CRON_SECRET", ""),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),

		EmailHost:     getEnv("EMAIL_HOST", ""),
		EmailPort:     getEnvAsInt("EMAIL_PORT", 587),
		EmailUser:     getEnv("EMAIL_HOST_USER", ""),
		EmailPassword: getEnv("EMAIL_HOST_PASSWORD", ""),
		EmailFrom:     getEnv("EMAIL_FROM", ""),
		EmailUseTLS:   getEnvAsBool("EMAIL_USE_TLS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
