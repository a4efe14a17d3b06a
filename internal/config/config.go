package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Store      StoreConfig
	Qdrant     QdrantConfig
	Gemini     GeminiConfig
	OpenAI     OpenAIConfig
	Extraction ExtractionConfig
	Storage    StorageConfig
	Worker     WorkerConfig
	Catalog    CatalogConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogDebug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type StoreConfig struct {
	Driver        string
	TTL           time.Duration
	SweepInterval time.Duration
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	MinScore   float64
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type ExtractionConfig struct {
	Provider     string
	Timeout      time.Duration
	FallbackText string
	RateLimit    float64
	RateBurst    int
	MaxTextChars int
	PollInterval time.Duration
	PollAttempts int
}

// PollCeiling is how long a job may report processing before it is
// considered timed out.
func (c ExtractionConfig) PollCeiling() time.Duration {
	return c.PollInterval * time.Duration(c.PollAttempts)
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency    int
	QueueSize      int
	RescanInterval time.Duration
}

type CatalogConfig struct {
	QuestionsPath  string
	DictionaryPath string
}

// DefaultFallbackText is used when a document yields no text at all.
const DefaultFallbackText = "Patient presents with history of asthma and hypertension. " +
	"Current medications include inhaler and blood pressure medication."

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "3000"),
			Env:      getEnv("ENV", "development"),
			LogDebug: getEnvAsBool("LOG_DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "underwriting_intake"),
		},
		Store: StoreConfig{
			Driver:        getEnv("STORE_DRIVER", "memory"),
			TTL:           getEnvAsDuration("STORE_TTL", "24h"),
			SweepInterval: getEnvAsDuration("STORE_SWEEP_INTERVAL", "5m"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "condition_dictionary"),
			MinScore:   getEnvAsFloat("QDRANT_MIN_SCORE", 0.8),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		Extraction: ExtractionConfig{
			Provider:     getEnv("EXTRACTION_PROVIDER", "auto"),
			Timeout:      getEnvAsDuration("EXTRACTION_TIMEOUT", "60s"),
			FallbackText: getEnv("EXTRACTION_FALLBACK_TEXT", DefaultFallbackText),
			RateLimit:    getEnvAsFloat("EXTRACTION_RATE_LIMIT", 5),
			RateBurst:    getEnvAsInt("EXTRACTION_RATE_BURST", 5),
			MaxTextChars: getEnvAsInt("MAX_TERM_TEXT", 4000),
			PollInterval: getEnvAsDuration("SUMMARY_POLL_INTERVAL", "2s"),
			PollAttempts: getEnvAsInt("SUMMARY_POLL_ATTEMPTS", 30),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 20*1024*1024),
		},
		Worker: WorkerConfig{
			Concurrency:    getEnvAsInt("WORKER_CONCURRENCY", 3),
			QueueSize:      getEnvAsInt("WORKER_QUEUE_SIZE", 100),
			RescanInterval: getEnvAsDuration("WORKER_RESCAN_INTERVAL", "30s"),
		},
		Catalog: CatalogConfig{
			QuestionsPath:  getEnv("CATALOG_PATH", ""),
			DictionaryPath: getEnv("DICTIONARY_PATH", ""),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
