package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	GPS       GPSConfig       `mapstructure:"gps"`
	Mail      MailConfig      `mapstructure:"mail"`
	Timezone  string          `mapstructure:"timezone"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// GPSConfig points at the fleet-tracking provider. Fleet maps GPS device
// numbers to the fleet numbers painted on the buses.
type GPSConfig struct {
	BaseURL          string            `mapstructure:"base_url"`
	Session          string            `mapstructure:"session"`
	Fleet            map[string]string `mapstructure:"fleet"`
	PollInterval     int               `mapstructure:"poll_interval"` // seconds
	SnapshotTTL      int               `mapstructure:"snapshot_ttl"`  // seconds
	StaleAfter       int               `mapstructure:"stale_after"`   // seconds without a fix
	MaxConcurrent    int               `mapstructure:"max_concurrent"`
	RequestTimeout   int               `mapstructure:"request_timeout"` // seconds
	DisablePublisher bool              `mapstructure:"disable_publisher"`
}

// PollEvery returns the poll interval as a duration.
func (g GPSConfig) PollEvery() time.Duration {
	return time.Duration(g.PollInterval) * time.Second
}

type MailConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("gps.base_url", "https://gps.monteverasrl.com.ar")
	v.SetDefault("gps.session", "")
	v.SetDefault("gps.fleet", map[string]string{
		"20006": "7",
		"20007": "5",
		"20008": "20",
		"20009": "13",
		"20010": "14",
		"20011": "8",
		"20013": "17",
	})
	v.SetDefault("gps.poll_interval", 30)
	v.SetDefault("gps.snapshot_ttl", 120)
	v.SetDefault("gps.stale_after", 100)
	v.SetDefault("gps.max_concurrent", 8)
	v.SetDefault("gps.request_timeout", 10)
	v.SetDefault("mail.endpoint", "https://api.resend.com/emails")
	v.SetDefault("mail.from", "web@montevera.com.ar")
	v.SetDefault("mail.to", "info@montevera.com.ar")
	v.SetDefault("timezone", "America/Argentina/Cordoba")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MONTEVERA_GPS_SESSION → gps.session
	v.SetEnvPrefix("MONTEVERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.GPS.BaseURL == "" {
		errs = append(errs, "gps.base_url is required")
	}
	if c.GPS.PollInterval <= 0 {
		errs = append(errs, "gps.poll_interval must be positive")
	}
	if c.GPS.MaxConcurrent <= 0 {
		errs = append(errs, "gps.max_concurrent must be positive")
	}
	if c.Mail.Endpoint == "" {
		errs = append(errs, "mail.endpoint is required")
	}
	if c.Timezone == "" {
		errs = append(errs, "timezone is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is not a valid IANA name", c.Timezone))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location resolves the configured operational timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
