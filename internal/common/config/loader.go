// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like GATEWAY_PEER
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, e.g. config.production.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	// Try multiple paths (for running from different directories)
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Gateway.Peer == "" {
		if val := os.Getenv("GATEWAY_PEER"); val != "" {
			cfg.Gateway.Peer = val
		}
	}
	if cfg.Gateway.Redis.Address == "" {
		if val := os.Getenv("GATEWAY_REDIS_ADDRESS"); val != "" {
			cfg.Gateway.Redis.Address = val
		}
	}
	if cfg.Store.FilePath == "" {
		if val := os.Getenv("SUBSCRIPTION_FILE"); val != "" {
			cfg.Store.FilePath = val
		}
	}
	if cfg.Notifier.AWS.Region == "" {
		if val := os.Getenv("AWS_REGION"); val != "" {
			cfg.Notifier.AWS.Region = val
		}
	}
	if cfg.Store.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Store.Postgres.User = val
		}
	}
	if cfg.Store.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Store.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "menubot"
	}

	// Bridge defaults: the menu peer usually answers well under a second.
	if cfg.Bridge.Timeout == 0 {
		cfg.Bridge.Timeout = 3000
	}

	if cfg.Menu.QueryToday == "" {
		cfg.Menu.QueryToday = "ipp heute"
	}
	if cfg.Menu.QueryTomorrow == "" {
		cfg.Menu.QueryTomorrow = "ipp morgen"
	}

	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = 10000
	}

	if cfg.Gateway.Backend == "" {
		cfg.Gateway.Backend = "redis"
	}
	if cfg.Gateway.InboundChannel == "" {
		cfg.Gateway.InboundChannel = "menubot:peer:inbound"
	}
	if cfg.Gateway.OutboundChannel == "" {
		cfg.Gateway.OutboundChannel = "menubot:peer:outbound"
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	if cfg.Store.FilePath == "" {
		cfg.Store.FilePath = "subscriptions.json"
	}
	if cfg.Store.Postgres.MaxConnections == 0 {
		cfg.Store.Postgres.MaxConnections = 10
	}
	if cfg.Store.Postgres.MaxIdle == 0 {
		cfg.Store.Postgres.MaxIdle = 2
	}
	if cfg.Store.Postgres.SSLMode == "" {
		cfg.Store.Postgres.SSLMode = "disable"
	}

	if cfg.Notifier.Channel == "" {
		cfg.Notifier.Channel = "log"
	}
	if cfg.Notifier.AWS.SES.Subject == "" {
		cfg.Notifier.AWS.SES.Subject = "Daily canteen menu"
	}

	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Gateway.Peer == "" {
		return fmt.Errorf("gateway.peer is required")
	}

	switch cfg.Gateway.Backend {
	case "redis":
		if cfg.Gateway.Redis.Address == "" {
			return fmt.Errorf("gateway.redis.address is required")
		}
	default:
		return fmt.Errorf("unsupported gateway.backend %q", cfg.Gateway.Backend)
	}

	switch cfg.Store.Backend {
	case "file":
		if cfg.Store.FilePath == "" {
			return fmt.Errorf("store.file_path is required")
		}
	case "redis":
		if cfg.Store.Redis.Address == "" {
			return fmt.Errorf("store.redis.address is required")
		}
	case "postgres":
		if cfg.Store.Postgres.Host == "" {
			return fmt.Errorf("store.postgres.host is required")
		}
		if cfg.Store.Postgres.Database == "" {
			return fmt.Errorf("store.postgres.database is required")
		}
		if cfg.Store.Postgres.User == "" {
			return fmt.Errorf("store.postgres.user is required")
		}
	default:
		return fmt.Errorf("unsupported store.backend %q", cfg.Store.Backend)
	}

	switch cfg.Notifier.Channel {
	case "sns":
		if cfg.Notifier.AWS.Region == "" {
			return fmt.Errorf("notifier.aws.region is required for sns")
		}
	case "ses":
		if cfg.Notifier.AWS.Region == "" {
			return fmt.Errorf("notifier.aws.region is required for ses")
		}
		if cfg.Notifier.AWS.SES.FromEmail == "" {
			return fmt.Errorf("notifier.aws.ses.from_email is required for ses")
		}
	case "log":
	default:
		return fmt.Errorf("unsupported notifier.channel %q", cfg.Notifier.Channel)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// IsAdmin checks the requester against the configured allow-list.
func (c *Config) IsAdmin(id string) bool {
	for _, a := range c.Admins {
		if a == id {
			return true
		}
	}
	return false
}
