// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Menu      MenuConfig      `mapstructure:"menu"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Store     StoreConfig     `mapstructure:"store"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Admins    []string        `mapstructure:"admins"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// GatewayConfig configures the presence-based transport to the menu peer.
type GatewayConfig struct {
	Backend string      `mapstructure:"backend"` // only "redis" is implemented
	Peer    string      `mapstructure:"peer"`
	Redis   RedisConfig `mapstructure:"redis"`

	// Channel pair carrying text frames to and from the peer.
	InboundChannel  string `mapstructure:"inbound_channel"`
	OutboundChannel string `mapstructure:"outbound_channel"`
}

// BridgeConfig configures the blocking request/reply bridge.
type BridgeConfig struct {
	Timeout int `mapstructure:"timeout"` // milliseconds
}

// MenuConfig holds the query strings sent to the menu peer.
type MenuConfig struct {
	QueryToday    string `mapstructure:"query_today"`
	QueryTomorrow string `mapstructure:"query_tomorrow"`
}

// SchedulerConfig configures the daily notification loop.
type SchedulerConfig struct {
	TickInterval int `mapstructure:"tick_interval"` // milliseconds
}

// StoreConfig selects and configures the subscription backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"` // file | redis | postgres
	FilePath string         `mapstructure:"file_path"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotifierConfig configures the outbound push channel for subscribers.
type NotifierConfig struct {
	Channel string `mapstructure:"channel"` // sns | ses | log
	AWS     struct {
		Region string `mapstructure:"region"`
		SES    struct {
			FromEmail string `mapstructure:"from_email"`
			Subject   string `mapstructure:"subject"`
		} `mapstructure:"ses"`
		SNS struct {
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// HTTPConfig configures the health/metrics/command server.
type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
