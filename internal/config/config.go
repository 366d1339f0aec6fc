package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Room      RoomConfig      `mapstructure:"room"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig defines API server ports and addresses
type ServerConfig struct {
	APIPort        int      `mapstructure:"api_port"`
	MetricsPort    int      `mapstructure:"metrics_port"`
	BindAddress    string   `mapstructure:"bind_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    string   `mapstructure:"read_timeout"`
	WriteTimeout   string   `mapstructure:"write_timeout"`
}

// StorageConfig defines the Redis storage backend settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// AuthConfig defines credential issuing and verification settings
type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenExpiration string `mapstructure:"token_expiration"`
	GuestTier       string `mapstructure:"guest_tier"`
	ClaimsCacheSize int    `mapstructure:"claims_cache_size"`
}

// RoomConfig defines the real-time room provider settings
type RoomConfig struct {
	URL             string `mapstructure:"url"`
	APIKey          string `mapstructure:"api_key"`
	APISecret       string `mapstructure:"api_secret"`
	JoinTokenTTL    string `mapstructure:"join_token_ttl"`
	MaxParticipants int    `mapstructure:"max_participants"`
	EmptyTimeout    string `mapstructure:"empty_timeout"`
	RequestTimeout  string `mapstructure:"request_timeout"`
}

// ProvidersConfig defines the speech and language model provider endpoints
type ProvidersConfig struct {
	STTURL       string `mapstructure:"stt_url"`
	STTAPIKey    string `mapstructure:"stt_api_key"`
	LLMBaseURL   string `mapstructure:"llm_base_url"`
	LLMAPIKey    string `mapstructure:"llm_api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TTSURL       string `mapstructure:"tts_url"`
	TTSAPIKey    string `mapstructure:"tts_api_key"`
	HTTPTimeout  string `mapstructure:"http_timeout"`
}

// WorkerConfig defines voice-agent worker settings
type WorkerConfig struct {
	RoomName        string `mapstructure:"room_name"`
	Identity        string `mapstructure:"identity"`
	ParticipantWait string `mapstructure:"participant_wait"`
	ResolveTimeout  string `mapstructure:"resolve_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("JARVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.api_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	// Storage defaults
	v.SetDefault("storage.redis.host", "127.0.0.1")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Auth defaults
	v.SetDefault("auth.token_expiration", "168h")
	v.SetDefault("auth.guest_tier", "guest")
	v.SetDefault("auth.claims_cache_size", 1024)

	// Room provider defaults
	v.SetDefault("room.join_token_ttl", "30m")
	v.SetDefault("room.max_participants", 2)
	v.SetDefault("room.empty_timeout", "5m")
	v.SetDefault("room.request_timeout", "10s")

	// Provider defaults
	v.SetDefault("providers.llm_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("providers.default_model", "google/gemini-2.5-flash-lite")
	v.SetDefault("providers.http_timeout", "20s")

	// Worker defaults
	v.SetDefault("worker.identity", "jarvis-agent")
	v.SetDefault("worker.participant_wait", "30s")
	v.SetDefault("worker.resolve_timeout", "5s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.APIPort <= 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.Server.APIPort)
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}
	if cfg.Storage.Redis.Host == "" {
		return fmt.Errorf("storage.redis.host is required")
	}
	if cfg.Storage.Redis.Port < 0 || cfg.Storage.Redis.Port > 65535 {
		return fmt.Errorf("invalid Redis port: %d", cfg.Storage.Redis.Port)
	}
	return nil
}
