package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	CatalogPath string

	RedisAddr string
	RedisPass string
	RedisDB   int

	GeminiAPIKey string
	GeminiModel  string
	TargetLocale string
	CohereAPIKey string
	NewsAPIKey   string

	S3Bucket       string
	S3Region       string
	S3Profile      string
	S3UsePathStyle bool

	KafkaBrokers  []string
	KafkaGroup    string
	FeedbackTopic string
	EventsTopic   string

	RefreshSchedule string

	Phase1Deadline     time.Duration
	Phase2Deadline     time.Duration
	FastTTL            time.Duration
	FullTTL            time.Duration
	StaleWindow        time.Duration
	MaxInFlight        int
	MemoryCacheEntries int
	EnrichConcurrency  int
}

// Load reads .env (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		CatalogPath: getEnv("CONFIG_PATH", ""),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		TargetLocale: getEnv("TARGET_LOCALE", "ko"),
		CohereAPIKey: getEnv("COHERE_API_KEY", ""),
		NewsAPIKey:   getEnv("NEWSAPI_KEY", ""),

		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("AWS_REGION", "ap-northeast-2"),
		S3Profile:      getEnv("AWS_PROFILE", ""),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),

		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaGroup:    getEnv("KAFKA_GROUP", "emarknews"),
		FeedbackTopic: getEnv("KAFKA_FEEDBACK_TOPIC", ""),
		EventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", ""),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@every 5m"),

		Phase1Deadline:     getEnvDuration("PHASE1_DEADLINE", Phase1Deadline),
		Phase2Deadline:     getEnvDuration("PHASE2_DEADLINE", Phase2Deadline),
		FastTTL:            getEnvDuration("FAST_TTL", FastTTL),
		FullTTL:            getEnvDuration("FULL_TTL", FullTTL),
		StaleWindow:        getEnvDuration("STALE_WINDOW", StaleWindow),
		MaxInFlight:        getEnvInt("MAX_IN_FLIGHT", MaxInFlight),
		MemoryCacheEntries: getEnvInt("MEMORY_CACHE_ENTRIES", MemoryCacheEntries),
		EnrichConcurrency:  getEnvInt("ENRICH_CONCURRENCY", EnrichConcurrency),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
