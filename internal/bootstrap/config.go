package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr  string
	CORSOrigins []string
	LogLevel    string

	DeepgramAPIKey    string
	DeepgramURL       string
	DeepgramModel     string
	DeepgramLanguage  string
	DeepgramKeepAlive time.Duration
	InterimCaptions   bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseDSN string
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":4000"),
		CORSOrigins: parseList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DeepgramAPIKey:    getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramURL:       getEnv("DEEPGRAM_URL", "wss://api.deepgram.com/v1/listen"),
		DeepgramModel:     getEnv("DEEPGRAM_MODEL", "nova-3"),
		DeepgramLanguage:  getEnv("DEEPGRAM_LANGUAGE", "en"),
		DeepgramKeepAlive: getEnvDuration("DEEPGRAM_KEEPALIVE", 10*time.Second),
		InterimCaptions:   getEnvBool("RELAY_INTERIM_CAPTIONS", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func parseList(envValue string) []string {
	var items []string
	for _, item := range strings.Split(envValue, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
