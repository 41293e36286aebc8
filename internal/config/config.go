package config

import (
	"os"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProviderSecretPrefix prefixes the environment variable holding a provider's API key.
const ProviderSecretPrefix = "PROVIDER_API_KEY_"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Repair    RepairConfig    `mapstructure:"repair"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	MaxBodySize  int64  `mapstructure:"max_body_size"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CacheConfig holds catalog caching configuration
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	CatalogTTL int  `mapstructure:"catalog_ttl"`
}

// AuthConfig holds caller authentication configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
	TokenTTL  int    `mapstructure:"token_ttl"`
}

// RepairConfig configures the model-assisted structural repair stage
type RepairConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Timeout   int    `mapstructure:"timeout"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// DispatchConfig configures outbound provider calls
type DispatchConfig struct {
	Timeout int `mapstructure:"timeout"`
}

// ProvidersConfig holds provider-level overrides
type ProvidersConfig struct {
	Auth map[string]ProviderAuthConfig `mapstructure:"auth"`
}

// ProviderAuthConfig describes where a provider expects its credential
type ProviderAuthConfig struct {
	Header       string            `mapstructure:"header"`
	Scheme       string            `mapstructure:"scheme"`
	ExtraHeaders map[string]string `mapstructure:"extra_headers"`
}

// LoadConfig loads configuration from .env, environment and config files
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 120)
	viper.SetDefault("server.idle_timeout", 120)
	viper.SetDefault("server.max_body_size", 10<<20)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "mvrouter")
	viper.SetDefault("database.dbname", "mvrouter")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.catalog_ttl", 300)
	viper.SetDefault("auth.jwt_issuer", "mvrouter")
	viper.SetDefault("auth.token_ttl", 86400)
	viper.SetDefault("repair.enabled", false)
	viper.SetDefault("repair.backend", "openai")
	viper.SetDefault("repair.model", "gpt-4.1-mini")
	viper.SetDefault("repair.timeout", 20)
	viper.SetDefault("repair.max_tokens", 2048)
	viper.SetDefault("dispatch.timeout", 120)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ProviderSecretEnv returns the environment variable name holding the secret for a provider slug.
// "openai" -> PROVIDER_API_KEY_OPENAI, "mistral-ai" -> PROVIDER_API_KEY_MISTRAL_AI.
func ProviderSecretEnv(slug string) string {
	var b strings.Builder
	b.WriteString(ProviderSecretPrefix)
	for _, r := range strings.TrimSpace(slug) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}

// SecretLookup resolves a provider slug to its secret
type SecretLookup func(slug string) (string, bool)

// EnvSecretLookup reads provider secrets from the process environment at call time
func EnvSecretLookup(slug string) (string, bool) {
	value, ok := os.LookupEnv(ProviderSecretEnv(slug))
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// NewSecretLookup provides the environment-backed secret lookup
func NewSecretLookup() SecretLookup {
	return EnvSecretLookup
}
