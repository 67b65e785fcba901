package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"

	BackendS3       = "s3"
	BackendGCS      = "gcs"
	BackendSupabase = "supabase"
)

type Config struct {
	Server    ServerConfig
	Documents DocumentsConfig
	Database  DatabaseConfig
	GCP       GCPConfig
	Redis     RedisConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Storage   StorageConfig
	LogLevel  string
}

type ServerConfig struct {
	Host           string
	Port           int
	MaxUploadBytes int64
	CORSOrigins    []string
	RateLimitRPS   int
	ShutdownGrace  time.Duration
}

type DocumentsConfig struct {
	Store         string
	Collection    string
	MinFileSize   int
	AutoSummarize bool
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type GCPConfig struct {
	ProjectID string
	Region    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type LLMConfig struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	AnthropicBaseURL string
	OllamaURL        string
	VertexModel      string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxOutputTokens  int
	ChunkTokens      int
	Concurrency      int
}

type StorageConfig struct {
	Backend     string
	Bucket      string
	KeyPrefix   string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
	SupabaseURL string
	SupabaseKey string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first without overriding variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	intVar := func(key string, fallback int) int {
		v, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return v
	}
	durVar := func(key string, fallback time.Duration) time.Duration {
		v, err := getEnvDuration(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return v
	}
	boolVar := func(key string, fallback bool) bool {
		v, err := getEnvBool(key, fallback)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           intVar("SERVER_PORT", 8080),
			MaxUploadBytes: int64(intVar("MAX_UPLOAD_MB", 50)) << 20,
			CORSOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
			RateLimitRPS:   intVar("RATE_LIMIT_RPS", 20),
			ShutdownGrace:  durVar("SHUTDOWN_GRACE", 30*time.Second),
		},
		Documents: DocumentsConfig{
			Store:         strings.ToLower(getEnv("DOCUMENT_STORE", StorePostgres)),
			Collection:    getEnv("FIRESTORE_COLLECTION", "document_details"),
			MinFileSize:   intVar("PDF_MIN_FILE_SIZE", 1024),
			AutoSummarize: boolVar("AUTO_SUMMARIZE", false),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       intVar("DB_MAX_CONNS", 20),
			MinConns:       intVar("DB_MIN_CONNS", 2),
			MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		},
		GCP: GCPConfig{
			ProjectID: getEnv("GCP_PROJECT_ID", ""),
			Region:    getEnv("GCP_REGION", "us-central1"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intVar("REDIS_DB", 0),
			CacheTTL: durVar("CACHE_TTL", time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET_KEY", ""),
			Issuer:    getEnv("JWT_ISSUER", "pdfsummarizer"),
			TokenTTL:  time.Duration(intVar("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
			OllamaURL:        getEnv("OLLAMA_URL", ""),
			VertexModel:      getEnv("GEMINI_MODEL_NAME", "gemini-1.5-flash"),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", ""),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxOutputTokens:  intVar("LLM_MAX_OUTPUT_TOKENS", 1024),
			ChunkTokens:      intVar("LLM_CHUNK_TOKENS", 6000),
			Concurrency:      intVar("LLM_CONCURRENCY", 4),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getEnv("OBJECT_STORE", BackendS3)),
			Bucket:      getEnv("S3_BUCKET_NAME", getEnv("STORAGE_BUCKET", "")),
			KeyPrefix:   getEnv("OBJECT_KEY_PREFIX", "documents/"),
			S3Region:    getEnv("AWS_REGION", getEnv("CUSTOM_AWS_REGION", "us-east-1")),
			S3AccessKey: getEnv("AWS_ACCESS_KEY_ID", getEnv("CUSTOM_AWS_ACCESS_KEY", "")),
			S3SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", getEnv("CUSTOM_AWS_SECRET_KEY", "")),
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			SupabaseURL: getEnv("SUPABASE_URL", ""),
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("load config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports every required variable missing for the selected backends.
func (c *Config) Validate() error {
	var missing []string

	switch c.Documents.Store {
	case StorePostgres:
		if c.Database.URL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreFirestore:
		if c.GCP.ProjectID == "" {
			missing = append(missing, "GCP_PROJECT_ID")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown DOCUMENT_STORE %q", c.Documents.Store)
	}

	switch c.Storage.Backend {
	case BackendS3, BackendGCS:
		if c.Storage.Bucket == "" {
			missing = append(missing, "S3_BUCKET_NAME")
		}
	case BackendSupabase:
		if c.Storage.Bucket == "" {
			missing = append(missing, "STORAGE_BUCKET")
		}
		if c.Storage.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.Storage.SupabaseKey == "" {
			missing = append(missing, "SUPABASE_SERVICE_KEY")
		}
	default:
		return fmt.Errorf("unknown OBJECT_STORE %q", c.Storage.Backend)
	}

	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if c.Documents.AutoSummarize && c.Redis.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
