package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the InsightQ server and worker.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Backend  BackendConfig
}

type ServerConfig struct {
	Port           int
	Env            string
	RequestsPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// WorkerConfig tunes the batch worker pool. VisibilityTimeout bounds how long
// a received queue message stays invisible to other workers; a job must
// finish (or heartbeat) within it or the message is redelivered.
type WorkerConfig struct {
	MaxConcurrent     int
	PollInterval      time.Duration
	ReceiveWait       time.Duration
	VisibilityTimeout time.Duration
	StepDelay         time.Duration
}

type BackendConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

var validProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"mock":      true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("INSIGHTQ_PORT", 8080),
			Env:            envString("INSIGHTQ_ENV", "development"),
			RequestsPerMin: envInt("INSIGHTQ_REQUESTS_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Worker: WorkerConfig{
			MaxConcurrent:     envInt("WORKER_MAX_CONCURRENT", 50),
			PollInterval:      envDuration("WORKER_POLL_INTERVAL", 5*time.Second),
			ReceiveWait:       envDuration("WORKER_RECEIVE_WAIT", 5*time.Second),
			VisibilityTimeout: envDuration("WORKER_VISIBILITY_TIMEOUT", 30*time.Minute),
			StepDelay:         envDuration("WORKER_STEP_DELAY", 100*time.Millisecond),
		},
		Backend: BackendConfig{
			Provider:         os.Getenv("ANALYSIS_PROVIDER"),
			InferenceTimeout: envDurationSecs("ANALYSIS_TIMEOUT_SECS", 60*time.Second),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Anthropic: AnthropicConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Model:   envString("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Worker.MaxConcurrent < 1 {
		return fmt.Errorf("WORKER_MAX_CONCURRENT must be at least 1, got %d", c.Worker.MaxConcurrent)
	}

	if c.Backend.Provider == "" {
		return fmt.Errorf("ANALYSIS_PROVIDER is required")
	}
	if !validProviders[c.Backend.Provider] {
		return fmt.Errorf("ANALYSIS_PROVIDER must be one of openai, anthropic, mock; got %q", c.Backend.Provider)
	}

	if c.Backend.Provider == "openai" && c.Backend.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when ANALYSIS_PROVIDER is openai")
	}
	if c.Backend.Provider == "anthropic" && c.Backend.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when ANALYSIS_PROVIDER is anthropic")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
