package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Runner   RunnerConfig
	Progress ProgressConfig
	Report   ReportConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration. The database is optional:
// runs and reports are always written to files as well.
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	URL             string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	OllamaBaseURL       string
	OllamaModel         string
	OpenRouterAPIKey    string
	OpenRouterModel     string
	OpenRouterReasoning bool
	DefaultProvider     string // "openai", "anthropic", "ollama", or "openrouter"
	JudgeModel          string
	Timeout             time.Duration
}

// RunnerConfig controls how samples are sent to the judge.
type RunnerConfig struct {
	Concurrency int
	FailFast    bool
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

// ProgressConfig selects where judged courses are cached between runs.
type ProgressConfig struct {
	Backend   string // "badger" or "redis"
	Path      string
	KeyPrefix string
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputDir string
	RulesFile string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", getEnvAsInt("PORT", 8080)),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "skill_aligner_eval"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Redis: loadRedisConfig(),
		LLM: LLMConfig{
			OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:         getEnv("OLLAMA_MODEL", "llama3.1:8b"),
			OpenRouterAPIKey:    getEnv("OPENROUTER_API_KEY", ""),
			OpenRouterModel:     getEnv("OPENROUTER_MODEL", "nvidia/nemotron-3-nano-30b-a3b:free"),
			OpenRouterReasoning: getEnvAsBool("OPENROUTER_ENABLE_REASONING", false),
			DefaultProvider:     getEnv("LLM_DEFAULT_PROVIDER", "ollama"),
			JudgeModel:          getEnv("LLM_JUDGE_MODEL", ""),
			Timeout:             getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Runner: RunnerConfig{
			Concurrency: getEnvAsInt("EVAL_CONCURRENCY", 6),
			FailFast:    getEnvAsBool("EVAL_FAIL_FAST", false),
			MaxRetries:  getEnvAsInt("EVAL_MAX_RETRIES", 3),
			BaseBackoff: getEnvAsDuration("EVAL_BASE_BACKOFF", time.Second),
			MaxBackoff:  getEnvAsDuration("EVAL_MAX_BACKOFF", 30*time.Second),
			MaxJitter:   getEnvAsDuration("EVAL_MAX_JITTER", 500*time.Millisecond),
		},
		Progress: ProgressConfig{
			Backend:   getEnv("PROGRESS_BACKEND", "badger"),
			Path:      getEnv("PROGRESS_PATH", ".eval/progress"),
			KeyPrefix: getEnv("PROGRESS_KEY_PREFIX", "eval:progress:"),
		},
		Report: ReportConfig{
			OutputDir: getEnv("REPORT_OUTPUT_DIR", "reports"),
			RulesFile: getEnv("REPORT_RULES_FILE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Runner.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Progress.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *RunnerConfig) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid runner concurrency: %d", c.Concurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid runner max retries: %d", c.MaxRetries)
	}
	if c.BaseBackoff < 0 || c.MaxBackoff < c.BaseBackoff {
		return fmt.Errorf("invalid runner backoff: base %s, max %s", c.BaseBackoff, c.MaxBackoff)
	}
	if c.MaxJitter < 0 {
		return fmt.Errorf("invalid runner jitter: %s", c.MaxJitter)
	}
	return nil
}

func (c *ProgressConfig) Validate() error {
	switch c.Backend {
	case "badger":
		if c.Path == "" {
			return fmt.Errorf("progress path is empty. Set PROGRESS_PATH environment variable")
		}
	case "redis":
		if c.KeyPrefix == "" {
			return fmt.Errorf("progress key prefix is empty. Set PROGRESS_KEY_PREFIX environment variable")
		}
	default:
		return fmt.Errorf("unknown progress backend: %q", c.Backend)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.Database + "?sslmode=disable"
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c *RedisConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("Redis host is empty. Set REDIS_URL or REDIS_HOST environment variable")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid Redis port: %d", c.Port)
	}
	return nil
}

func loadRedisConfig() RedisConfig {
	redisURL := getEnv("REDIS_URL", "")
	if redisURL != "" {
		return parseRedisURL(redisURL)
	}

	return RedisConfig{
		Host:     getEnv("REDISHOST", getEnv("REDIS_HOST", "")),
		Port:     getEnvAsInt("REDISPORT", getEnvAsInt("REDIS_PORT", 6379)),
		Password: getEnv("REDISPASSWORD", getEnv("REDIS_PASSWORD", "")),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

func parseRedisURL(redisURL string) RedisConfig {
	cfg := RedisConfig{
		URL:  redisURL,
		Port: 6379,
		DB:   0,
	}

	if !strings.HasPrefix(redisURL, "redis://") && !strings.HasPrefix(redisURL, "rediss://") {
		redisURL = "redis://" + redisURL
		cfg.URL = redisURL
	}

	u, err := url.Parse(redisURL)
	if err != nil {
		return cfg
	}

	if u.User != nil {
		cfg.Password, _ = u.User.Password()
	}

	cfg.Host = u.Hostname()
	if u.Port() != "" {
		if port, err := strconv.Atoi(u.Port()); err == nil {
			cfg.Port = port
		}
	}

	if u.Path != "" {
		dbStr := strings.TrimPrefix(u.Path, "/")
		if dbStr != "" {
			if db, err := strconv.Atoi(dbStr); err == nil {
				cfg.DB = db
			}
		}
	}

	return cfg
}

// Addr returns the server address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
