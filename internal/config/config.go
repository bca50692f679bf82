package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL      string   `mapstructure:"REDIS_URL"`
	CartStore     string   `mapstructure:"CART_STORE"`
	AuthIssuer    string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience  string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSecret    string   `mapstructure:"AUTH_SECRET"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CART_STORE", "") // auto-detect: postgres > redis > memory
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("CART_STORE")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests without a bearer token get a fixed dev patient identity.")
		log.Println("WARNING: Set ENV=production and configure AUTH_SECRET or AUTH_ISSUER for production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedCartStore returns the effective persistence driver for cart records.
// If CART_STORE is explicitly set, it is returned. Otherwise the driver is
// inferred from what is configured: DATABASE_URL → "postgres", REDIS_URL →
// "redis", nothing → "memory" (development only).
func (c *Config) ResolvedCartStore() string {
	if c.CartStore != "" {
		return c.CartStore
	}
	if c.DatabaseURL != "" {
		return "postgres"
	}
	if c.RedisURL != "" {
		return "redis"
	}
	return "memory"
}

// Validate checks that the configuration is safe to run. Production requires
// real authentication (AUTH_SECRET or AUTH_ISSUER) and a durable cart store.
func (c *Config) Validate() error {
	switch driver := c.ResolvedCartStore(); driver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when CART_STORE is \"postgres\"")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CART_STORE is \"redis\"")
		}
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("CART_STORE \"memory\" is not allowed in production; configure DATABASE_URL or REDIS_URL")
		}
	default:
		return fmt.Errorf("CART_STORE must be \"postgres\", \"redis\", or \"memory\", got %q", driver)
	}

	if c.IsProduction() && c.AuthSecret == "" && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_SECRET or AUTH_ISSUER is required in production; refusing to start without authentication")
	}

	return nil
}
