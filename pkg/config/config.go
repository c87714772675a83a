// Package config loads service configuration from YAML files and
// environment variables using viper. Environment variables use the HH_
// prefix with dots replaced by underscores (HH_STORE_MAX_OPEN_CONNS),
// plus explicit bindings for the short names used in deployment manifests
// (DATABASE_URL, REDIS_ADDR and friends).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates all subsystem configuration.
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Store       StoreConfig      `mapstructure:"store"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Embedding   EmbeddingConfig  `mapstructure:"embedding"`
	Rerank      RerankConfig     `mapstructure:"rerank"`
	NLP         NLPConfig        `mapstructure:"nlp"`
	Trajectory  TrajectoryConfig `mapstructure:"trajectory"`
	Search      SearchConfig     `mapstructure:"search"`
	Bias        BiasConfig       `mapstructure:"bias"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Tracing     TracingConfig    `mapstructure:"tracing"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	ListenAddress   string          `mapstructure:"listen_address"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration   `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	EnableCORS      bool            `mapstructure:"enable_cors"`
	CORSOrigins     []string        `mapstructure:"cors_origins"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig contains per-tenant request rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	RPS     float64       `mapstructure:"rps"`
	Burst   int           `mapstructure:"burst"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// StoreConfig contains Postgres connection configuration.
type StoreConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MaxConcurrent   int64         `mapstructure:"max_concurrent"`
	EFSearch        int           `mapstructure:"ef_search"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig contains Redis configuration for the layered result cache.
type CacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	Prefix       string        `mapstructure:"prefix"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`

	ResultTTL     time.Duration `mapstructure:"result_ttl"`
	RerankTTL     time.Duration `mapstructure:"rerank_ttl"`
	EmbeddingTTL  time.Duration `mapstructure:"embedding_ttl"`
	SpecialtyTTL  time.Duration `mapstructure:"specialty_ttl"`
	JitterPercent float64       `mapstructure:"jitter_percent"`
}

// EmbeddingConfig contains embedding provider configuration. Provider is
// "service" for the HTTP embedding service or "bedrock" for AWS Bedrock.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	BaseURL    string        `mapstructure:"base_url"`
	Audience   string        `mapstructure:"audience"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Dims       int           `mapstructure:"dims"`

	Bedrock BedrockConfig `mapstructure:"bedrock"`
}

// BedrockConfig contains AWS Bedrock provider configuration.
type BedrockConfig struct {
	Region   string `mapstructure:"region"`
	ModelID  string `mapstructure:"model_id"`
	Endpoint string `mapstructure:"endpoint"`
}

// RerankConfig contains cross-encoder rerank service configuration.
type RerankConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	BaseURL          string        `mapstructure:"base_url"`
	Audience         string        `mapstructure:"audience"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	TopN             int           `mapstructure:"top_n"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	CooldownPeriod   int           `mapstructure:"cooldown_period"`
}

// NLPConfig contains query understanding configuration.
type NLPConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	LLMBaseURL          string        `mapstructure:"llm_base_url"`
	LLMAPIKey           string        `mapstructure:"llm_api_key"`
	LLMModel            string        `mapstructure:"llm_model"`
	LLMTimeout          time.Duration `mapstructure:"llm_timeout"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	IntentThreshold     float64       `mapstructure:"intent_threshold"`
	ExpansionMinConf    float64       `mapstructure:"expansion_min_conf"`
	ExtractorCacheSize  int           `mapstructure:"extractor_cache_size"`
	ExtractorCacheTTL   time.Duration `mapstructure:"extractor_cache_ttl"`
}

// TrajectoryConfig contains the ML trajectory service configuration.
type TrajectoryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

// SearchConfig contains search pipeline tunables.
type SearchConfig struct {
	DefaultLimit     int     `mapstructure:"default_limit"`
	MaxLimit         int     `mapstructure:"max_limit"`
	FusionMethod     string  `mapstructure:"fusion_method"`
	RRFK             int     `mapstructure:"rrf_k"`
	PerMethodLimit   int     `mapstructure:"per_method_limit"`
	VectorWeight     float64 `mapstructure:"vector_weight"`
	TextWeight       float64 `mapstructure:"text_weight"`
	MinSimilarity    float64 `mapstructure:"min_similarity"`
	OverFetchFactor  int     `mapstructure:"over_fetch_factor"`
	CoverageBonusCap float64 `mapstructure:"coverage_bonus_cap"`
	PerfBufferSize   int     `mapstructure:"perf_buffer_size"`
}

// BiasConfig contains anonymization and diversity analysis configuration.
type BiasConfig struct {
	AnonymizeDefault  bool    `mapstructure:"anonymize_default"`
	StripProxies      bool    `mapstructure:"strip_proxies"`
	DiversityEnabled  bool    `mapstructure:"diversity_enabled"`
	MinPoolSize       int     `mapstructure:"min_pool_size"`
	WarnThreshold     float64 `mapstructure:"warn_threshold"`
	HighThreshold     float64 `mapstructure:"high_threshold"`
	CriticalThreshold float64 `mapstructure:"critical_threshold"`
}

// LoggingConfig contains logger configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Prefix string `mapstructure:"prefix"`
}

// TracingConfig contains OpenTelemetry exporter configuration.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile := os.Getenv("HH_CONFIG_FILE"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
	}

	v.SetEnvPrefix("HH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind the short variable names used in deployment manifests. Best
	// effort, viper handles errors internally.
	_ = v.BindEnv("store.dsn", "DATABASE_URL")
	_ = v.BindEnv("cache.address", "REDIS_ADDR")
	_ = v.BindEnv("cache.address", "REDIS_ADDRESS")
	_ = v.BindEnv("embedding.base_url", "EMBEDDING_SERVICE_URL")
	_ = v.BindEnv("embedding.api_key", "EMBEDDING_SERVICE_API_KEY")
	_ = v.BindEnv("rerank.base_url", "RERANK_SERVICE_URL")
	_ = v.BindEnv("trajectory.base_url", "TRAJECTORY_SERVICE_URL")
	_ = v.BindEnv("trajectory.api_key", "TRAJECTORY_SERVICE_API_KEY")
	_ = v.BindEnv("nlp.llm_base_url", "LLM_BASE_URL")
	_ = v.BindEnv("nlp.llm_api_key", "LLM_API_KEY")
	_ = v.BindEnv("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	v.AllowEmptyEnv(true)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	processEnvExpansion(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks ranges that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.Store.MaxOpenConns < 1 {
		return fmt.Errorf("store.max_open_conns must be at least 1, got %d", c.Store.MaxOpenConns)
	}
	if c.Store.MaxIdleConns < 0 || c.Store.MaxIdleConns > c.Store.MaxOpenConns {
		return fmt.Errorf("store.max_idle_conns must be between 0 and max_open_conns, got %d", c.Store.MaxIdleConns)
	}
	if c.Store.MaxConcurrent < 1 {
		return fmt.Errorf("store.max_concurrent must be at least 1, got %d", c.Store.MaxConcurrent)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > 200 {
		return fmt.Errorf("search.default_limit must be between 1 and 200, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit || c.Search.MaxLimit > 200 {
		return fmt.Errorf("search.max_limit must be between default_limit and 200, got %d", c.Search.MaxLimit)
	}
	if c.Search.FusionMethod != "rrf" && c.Search.FusionMethod != "weighted" {
		return fmt.Errorf("search.fusion_method must be rrf or weighted, got %q", c.Search.FusionMethod)
	}
	if c.Search.RRFK < 1 {
		return fmt.Errorf("search.rrf_k must be at least 1, got %d", c.Search.RRFK)
	}
	if err := validateUnit("search.vector_weight", c.Search.VectorWeight); err != nil {
		return err
	}
	if err := validateUnit("search.text_weight", c.Search.TextWeight); err != nil {
		return err
	}
	if err := validateUnit("search.min_similarity", c.Search.MinSimilarity); err != nil {
		return err
	}
	if err := validateUnit("nlp.confidence_threshold", c.NLP.ConfidenceThreshold); err != nil {
		return err
	}
	if err := validateUnit("nlp.intent_threshold", c.NLP.IntentThreshold); err != nil {
		return err
	}
	if err := validateUnit("nlp.expansion_min_conf", c.NLP.ExpansionMinConf); err != nil {
		return err
	}
	if err := validateUnit("bias.warn_threshold", c.Bias.WarnThreshold); err != nil {
		return err
	}
	if err := validateUnit("bias.high_threshold", c.Bias.HighThreshold); err != nil {
		return err
	}
	if err := validateUnit("bias.critical_threshold", c.Bias.CriticalThreshold); err != nil {
		return err
	}
	if c.Cache.JitterPercent < 0 || c.Cache.JitterPercent > 0.5 {
		return fmt.Errorf("cache.jitter_percent must be between 0 and 0.5, got %v", c.Cache.JitterPercent)
	}
	if c.Rerank.MaxRetries < 0 {
		return fmt.Errorf("rerank.max_retries must not be negative, got %d", c.Rerank.MaxRetries)
	}
	return nil
}

func validateUnit(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	// Server defaults
	v.SetDefault("server.listen_address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.rps", 25.0)
	v.SetDefault("server.rate_limit.burst", 50)
	v.SetDefault("server.rate_limit.ttl", 10*time.Minute)

	// Store defaults
	v.SetDefault("store.max_open_conns", 25)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("store.conn_max_idle_time", 2*time.Minute)
	v.SetDefault("store.connect_timeout", 30*time.Second)
	v.SetDefault("store.query_timeout", 10*time.Second)
	v.SetDefault("store.max_concurrent", 20)
	v.SetDefault("store.ef_search", 80)
	v.SetDefault("store.migrate_on_start", false)
	v.SetDefault("store.migrations_path", "migrations")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.prefix", "hh")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.min_idle_conns", 2)
	v.SetDefault("cache.dial_timeout", 5*time.Second)
	v.SetDefault("cache.read_timeout", 3*time.Second)
	v.SetDefault("cache.write_timeout", 3*time.Second)
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.result_ttl", 600*time.Second)
	v.SetDefault("cache.rerank_ttl", 6*time.Hour)
	v.SetDefault("cache.embedding_ttl", 1*time.Hour)
	v.SetDefault("cache.specialty_ttl", 24*time.Hour)
	v.SetDefault("cache.jitter_percent", 0.2)

	// Embedding defaults
	v.SetDefault("embedding.provider", "service")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout", 10*time.Second)
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.retry_delay", 200*time.Millisecond)
	v.SetDefault("embedding.dims", 1536)
	v.SetDefault("embedding.bedrock.region", "us-east-1")
	v.SetDefault("embedding.bedrock.model_id", "amazon.titan-embed-text-v2:0")

	// Rerank defaults
	v.SetDefault("rerank.enabled", false)
	v.SetDefault("rerank.timeout", 10*time.Second)
	v.SetDefault("rerank.max_retries", 2)
	v.SetDefault("rerank.retry_delay", 200*time.Millisecond)
	v.SetDefault("rerank.top_n", 50)
	v.SetDefault("rerank.failure_threshold", 5)
	v.SetDefault("rerank.cooldown_period", 30)

	// NLP defaults
	v.SetDefault("nlp.enabled", true)
	v.SetDefault("nlp.llm_model", "gpt-4o-mini")
	v.SetDefault("nlp.llm_timeout", 100*time.Millisecond)
	v.SetDefault("nlp.confidence_threshold", 0.5)
	v.SetDefault("nlp.intent_threshold", 0.6)
	v.SetDefault("nlp.expansion_min_conf", 0.8)
	v.SetDefault("nlp.extractor_cache_size", 1000)
	v.SetDefault("nlp.extractor_cache_ttl", 5*time.Minute)

	// Trajectory defaults
	v.SetDefault("trajectory.enabled", false)
	v.SetDefault("trajectory.timeout", 10*time.Second)
	v.SetDefault("trajectory.poll_interval", 30*time.Second)
	v.SetDefault("trajectory.poll_timeout", 5*time.Second)

	// Search defaults
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 200)
	v.SetDefault("search.fusion_method", "rrf")
	v.SetDefault("search.rrf_k", 60)
	v.SetDefault("search.per_method_limit", 100)
	v.SetDefault("search.vector_weight", 0.7)
	v.SetDefault("search.text_weight", 0.3)
	v.SetDefault("search.min_similarity", 0.3)
	v.SetDefault("search.over_fetch_factor", 3)
	v.SetDefault("search.coverage_bonus_cap", 0.1)
	v.SetDefault("search.perf_buffer_size", 500)

	// Bias defaults
	v.SetDefault("bias.anonymize_default", true)
	v.SetDefault("bias.strip_proxies", true)
	v.SetDefault("bias.diversity_enabled", true)
	v.SetDefault("bias.min_pool_size", 5)
	v.SetDefault("bias.warn_threshold", 0.7)
	v.SetDefault("bias.high_threshold", 0.8)
	v.SetDefault("bias.critical_threshold", 0.9)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.prefix", "search")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "candidate-search")
	v.SetDefault("tracing.sample_rate", 0.1)
}

// processEnvExpansion processes environment variable expansions in config
// values. Supports ${VAR} and ${VAR:-default} syntax.
func processEnvExpansion(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if value == "" {
			continue
		}
		if strings.Contains(value, "${") && strings.Contains(value, "}") {
			expanded := expandEnvVars(value)
			if expanded != value {
				v.Set(key, expanded)
			}
		}
	}
}

// expandEnvVars expands ${VAR} and ${VAR:-default} references in a string.
func expandEnvVars(value string) string {
	result := value

	for {
		start := strings.Index(result, "${")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}") + start
		if end == -1 {
			break
		}

		varRef := result[start+2 : end]

		var envVar, defaultVal string
		if strings.Contains(varRef, ":-") {
			parts := strings.SplitN(varRef, ":-", 2)
			envVar = parts[0]
			defaultVal = parts[1]
		} else {
			envVar = varRef
		}

		envVal := os.Getenv(envVar)
		if envVal == "" && defaultVal != "" {
			envVal = defaultVal
		}

		result = result[:start] + envVal + result[end+1:]
	}

	return result
}
