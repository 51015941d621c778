package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"realty/pkg/log"
)

// Config holds all configuration for the application
type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	Retrieval   RetrievalConfig
	VectorIndex VectorIndexConfig
	Sessions    SessionConfig
	Logging     LoggingConfig
	AI          AIConfig
}

// DatabaseConfig holds the listing store connection settings
type DatabaseConfig struct {
	Driver             string // postgres or sqlite
	DSN                string // full connection string (takes priority)
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	SQLitePath         string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// RetrievalConfig holds the thresholds and result sizes used by the retrieval router.
// Price floors drop scraped noise from every rent/sell read.
type RetrievalConfig struct {
	RentPriceFloor    float64
	SellPriceFloor    float64
	StudentMaxRent    float64
	ListingLimit      int
	SemanticTopK      int
	MergeHits         int
	StudentDistricts  int
	FamilyDistricts   int
	InvestDistricts   int
	OverviewDistricts int
}

// VectorIndexConfig selects and configures the embedding index backend
type VectorIndexConfig struct {
	Backend    string // pgvector, qdrant or memory
	Collection string
	QdrantHost string
	QdrantPort int
	Dimensions int
	BatchSize  int
}

// SessionConfig selects where conversation history lives
type SessionConfig struct {
	Backend       string // memory or redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	MaxTurns      int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// AIConfig holds the language model and embedding API configuration
type AIConfig struct {
	Provider            string // openai (plain HTTP client) or langchain
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	EmbeddingModel      string
	EmbeddingDimensions int
	BatchSize           int
	Timeout             int
	Enabled             bool
}

// Load reads configuration from a .env file, the environment and, when CONFIG_FILE
// is set, a config file using the same flat keys.
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	e := &env{v: v}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:             strings.ToLower(e.getString("DB_DRIVER", "postgres")),
			DSN:                e.getString("DATABASE_URL", e.getString("PG_DSN", "")),
			Host:               e.getString("PG_HOST", "localhost"),
			Port:               e.getInt("PG_PORT", 5432),
			User:               e.getString("PG_USER", "postgres"),
			Password:           e.getString("PG_PASSWORD", ""),
			Database:           e.getString("PG_DATABASE", "realty"),
			SSLMode:            e.getString("PG_SSLMODE", "disable"),
			SQLitePath:         e.getString("SQLITE_PATH", "./data/realty.db"),
			MaxConnections:     e.getInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: e.getInt("DB_MAX_IDLE_CONNECTIONS", 2),
		},
		Server: ServerConfig{
			Port:           e.getInt("SERVER_PORT", 8080),
			Host:           e.getString("SERVER_HOST", "0.0.0.0"),
			GinMode:        e.getString("GIN_MODE", "release"),
			AllowedOrigins: e.getString("CORS_ALLOWED_ORIGINS", "*"),
		},
		Retrieval: RetrievalConfig{
			RentPriceFloor:    e.getFloat("RENT_PRICE_FLOOR", 2000),
			SellPriceFloor:    e.getFloat("SELL_PRICE_FLOOR", 500000),
			StudentMaxRent:    e.getFloat("STUDENT_MAX_RENT", 15000),
			ListingLimit:      e.getInt("LISTING_LIMIT", 5),
			SemanticTopK:      e.getInt("SEMANTIC_TOP_K", 5),
			MergeHits:         e.getInt("MERGE_HITS", 4),
			StudentDistricts:  e.getInt("STUDENT_DISTRICTS", 5),
			FamilyDistricts:   e.getInt("FAMILY_DISTRICTS", 5),
			InvestDistricts:   e.getInt("INVESTMENT_DISTRICTS", 8),
			OverviewDistricts: e.getInt("OVERVIEW_DISTRICTS", 10),
		},
		VectorIndex: VectorIndexConfig{
			Backend:    strings.ToLower(e.getString("VECTOR_BACKEND", "pgvector")),
			Collection: e.getString("VECTOR_COLLECTION", "prague_listings"),
			QdrantHost: e.getString("QDRANT_HOST", "localhost"),
			QdrantPort: e.getInt("QDRANT_PORT", 6334),
			Dimensions: e.getInt("EMBEDDING_DIMENSIONS", 1536),
			BatchSize:  e.getInt("INDEX_BATCH_SIZE", 32),
		},
		Sessions: SessionConfig{
			Backend:       strings.ToLower(e.getString("SESSION_BACKEND", "memory")),
			RedisAddr:     e.getString("REDIS_ADDR", "localhost:6379"),
			RedisPassword: e.getString("REDIS_PASSWORD", ""),
			RedisDB:       e.getInt("REDIS_DB", 0),
			TTL:           e.getDuration("SESSION_TTL", 7*24*time.Hour),
			MaxTurns:      e.getInt("HISTORY_MAX_TURNS", 20),
		},
		Logging: LoggingConfig{
			Level:      e.getString("LOG_LEVEL", "info"),
			Format:     e.getString("LOG_FORMAT", "json"),
			OutputPath: e.getString("LOG_OUTPUT_PATH", ""),
		},
		AI: AIConfig{
			Provider:            strings.ToLower(e.getString("AI_PROVIDER", "openai")),
			APIKey:              e.getString("OPENAI_API_KEY", ""),
			APIBase:             e.getString("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           e.getString("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     e.getFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:            e.getFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:       e.getInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			EmbeddingModel:      e.getString("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: e.getInt("EMBEDDING_DIMENSIONS", 1536),
			BatchSize:           e.getInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             e.getInt("OPENAI_TIMEOUT", 30),
		},
	}
	cfg.AI.Enabled = cfg.AI.APIKey != ""

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and non-positive limits
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected postgres or sqlite)", c.Database.Driver)
	}
	switch c.VectorIndex.Backend {
	case "pgvector", "qdrant", "memory":
	default:
		return fmt.Errorf("unsupported VECTOR_BACKEND %q (expected pgvector, qdrant or memory)", c.VectorIndex.Backend)
	}
	if c.VectorIndex.Backend == "pgvector" && c.Database.Driver != "postgres" {
		return fmt.Errorf("VECTOR_BACKEND=pgvector requires DB_DRIVER=postgres")
	}
	switch c.Sessions.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q (expected memory or redis)", c.Sessions.Backend)
	}
	switch c.AI.Provider {
	case "openai", "langchain":
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q (expected openai or langchain)", c.AI.Provider)
	}

	limits := map[string]int{
		"LISTING_LIMIT":        c.Retrieval.ListingLimit,
		"SEMANTIC_TOP_K":       c.Retrieval.SemanticTopK,
		"MERGE_HITS":           c.Retrieval.MergeHits,
		"STUDENT_DISTRICTS":    c.Retrieval.StudentDistricts,
		"FAMILY_DISTRICTS":     c.Retrieval.FamilyDistricts,
		"INVESTMENT_DISTRICTS": c.Retrieval.InvestDistricts,
		"OVERVIEW_DISTRICTS":   c.Retrieval.OverviewDistricts,
		"INDEX_BATCH_SIZE":     c.VectorIndex.BatchSize,
		"HISTORY_MAX_TURNS":    c.Sessions.MaxTurns,
	}
	for key, value := range limits {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, value)
		}
	}
	if c.Retrieval.RentPriceFloor < 0 || c.Retrieval.SellPriceFloor < 0 {
		return fmt.Errorf("price floors must not be negative")
	}
	return nil
}

// GetDSN returns the connection string for the configured driver
func (c *Config) GetDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLitePath
	}
	if c.Database.DSN != "" {
		return c.Database.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// Helper functions

type env struct {
	v *viper.Viper
}

func (e *env) getString(key, defaultValue string) string {
	value := e.v.GetString(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (e *env) getInt(key string, defaultValue int) int {
	if !e.v.IsSet(key) || e.v.GetString(key) == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(e.v.GetString(key))
	if err != nil {
		log.Warnf("Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func (e *env) getFloat(key string, defaultValue float64) float64 {
	if !e.v.IsSet(key) || e.v.GetString(key) == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(e.v.GetString(key), 64)
	if err != nil {
		log.Warnf("Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func (e *env) getDuration(key string, defaultValue time.Duration) time.Duration {
	if !e.v.IsSet(key) || e.v.GetString(key) == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(e.v.GetString(key))
	if err != nil {
		log.Warnf("Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}
