package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"statement-reconciliation-backend/pkg/logger"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      logger.Config  `mapstructure:"log"`
	Matching MatchingConfig `mapstructure:"matching"`
	Import   ImportConfig   `mapstructure:"import"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver is one of postgres, mysql or sqlite.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// Postgres connection parts, used when DSN is empty.
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	LogSQL   bool   `mapstructure:"log_sql"`
}

type MatchingConfig struct {
	AmountTolerance   string `mapstructure:"amount_tolerance"`
	LookbackDays      int    `mapstructure:"lookback_days"`
	LookaheadDays     int    `mapstructure:"lookahead_days"`
	DateProximityDays int    `mapstructure:"date_proximity_days"`
	DefaultBatchLimit int    `mapstructure:"default_batch_limit"`
	MaxBatchLimit     int    `mapstructure:"max_batch_limit"`
}

type ImportConfig struct {
	MaxFileBytes              int64 `mapstructure:"max_file_bytes"`
	SkipDuplicateTransactions bool  `mapstructure:"skip_duplicate_transactions"`
}

// Tolerance parses AmountTolerance. Validate has already rejected bad values.
func (m MatchingConfig) Tolerance() decimal.Decimal {
	d, err := decimal.NewFromString(m.AmountTolerance)
	if err != nil {
		return decimal.New(1, -2)
	}
	return d
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.log_sql", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "reconciliation")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("matching.amount_tolerance", "0.01")
	v.SetDefault("matching.lookback_days", 90)
	v.SetDefault("matching.lookahead_days", 7)
	v.SetDefault("matching.date_proximity_days", 14)
	v.SetDefault("matching.default_batch_limit", 50)
	v.SetDefault("matching.max_batch_limit", 500)

	v.SetDefault("import.max_file_bytes", 20<<20)
	v.SetDefault("import.skip_duplicate_transactions", true)
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads .env (if present), an optional config file and RECON_* environment variables.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Infof("No .env file found, relying on system env")
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Driver != "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}

	tol, err := decimal.NewFromString(c.Matching.AmountTolerance)
	if err != nil || tol.IsNegative() {
		return fmt.Errorf("invalid matching.amount_tolerance: %q", c.Matching.AmountTolerance)
	}
	if c.Matching.LookbackDays < 0 || c.Matching.LookaheadDays < 0 || c.Matching.DateProximityDays < 0 {
		return fmt.Errorf("matching day windows cannot be negative")
	}
	if c.Matching.DefaultBatchLimit <= 0 || c.Matching.MaxBatchLimit < c.Matching.DefaultBatchLimit {
		return fmt.Errorf("invalid batch limits: default %d, max %d", c.Matching.DefaultBatchLimit, c.Matching.MaxBatchLimit)
	}
	if c.Import.MaxFileBytes <= 0 {
		return fmt.Errorf("import.max_file_bytes must be positive")
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
