// Package config handles configuration loading and validation.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tathienbao/terminal-gateway/internal/alerting"
	"github.com/tathienbao/terminal-gateway/internal/gateway"
	"github.com/tathienbao/terminal-gateway/internal/terminal/bridge"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// EnvPrefix prefixes environment overrides, e.g. GATEWAY_TERMINAL_HOST.
const EnvPrefix = "GATEWAY"

// Terminal modes.
const (
	ModeBridge = "bridge"
	ModePaper  = "paper"
)

// Config represents the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Terminal TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Orders   OrdersConfig   `mapstructure:"orders" yaml:"orders"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	Alerting AlertingConfig `mapstructure:"alerting" yaml:"alerting"`
	Shutdown ShutdownConfig `mapstructure:"shutdown" yaml:"shutdown"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host"`
	Port            int    `mapstructure:"port" yaml:"port"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
}

// TerminalConfig holds terminal connection settings.
type TerminalConfig struct {
	Mode                 string `mapstructure:"mode" yaml:"mode"` // bridge | paper
	Host                 string `mapstructure:"host" yaml:"host"`
	Port                 int    `mapstructure:"port" yaml:"port"`
	ConnectTimeoutSec    int    `mapstructure:"connect_timeout_sec" yaml:"connect_timeout_sec"`
	RequestTimeoutSec    int    `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second" yaml:"max_requests_per_second"`
	AutoReconnect        bool   `mapstructure:"auto_reconnect" yaml:"auto_reconnect"`
	ReconnectIntervalSec int    `mapstructure:"reconnect_interval_sec" yaml:"reconnect_interval_sec"`
	MaxReconnectTries    int    `mapstructure:"max_reconnect_tries" yaml:"max_reconnect_tries"`
	BridgeVersion        string `mapstructure:"bridge_version" yaml:"bridge_version"`
}

// OrdersConfig holds the values applied to orders that omit them.
type OrdersConfig struct {
	Deviation   int    `mapstructure:"deviation" yaml:"deviation"`
	Magic       int64  `mapstructure:"magic" yaml:"magic"`
	Comment     string `mapstructure:"comment" yaml:"comment"`
	TypeFilling string `mapstructure:"type_filling" yaml:"type_filling"` // fok | ioc | return
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json | console
}

// MetricsConfig holds metrics settings.
// Port 0 serves the metrics on the API listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port" yaml:"port"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// TracingConfig holds Jaeger settings.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AgentHost   string `mapstructure:"agent_host" yaml:"agent_host"`
	AgentPort   int    `mapstructure:"agent_port" yaml:"agent_port"`
}

// AlertingConfig holds alerting settings.
type AlertingConfig struct {
	Enabled  bool            `mapstructure:"enabled" yaml:"enabled"`
	Channels []ChannelConfig `mapstructure:"channels" yaml:"channels"`
	Events   []string        `mapstructure:"events" yaml:"events"`
}

// ChannelConfig holds a single alert channel configuration.
type ChannelConfig struct {
	Type     string `mapstructure:"type" yaml:"type"` // telegram | console
	BotToken string `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID   string `mapstructure:"chat_id" yaml:"chat_id"`
}

// ShutdownConfig holds shutdown settings.
type ShutdownConfig struct {
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout_sec", 10)
	v.SetDefault("server.write_timeout_sec", 30)

	v.SetDefault("terminal.mode", ModeBridge)
	v.SetDefault("terminal.host", "localhost")
	v.SetDefault("terminal.port", 18812)
	v.SetDefault("terminal.connect_timeout_sec", 10)
	v.SetDefault("terminal.request_timeout_sec", 10)
	v.SetDefault("terminal.max_requests_per_second", 50)
	v.SetDefault("terminal.auto_reconnect", true)
	v.SetDefault("terminal.reconnect_interval_sec", 5)
	v.SetDefault("terminal.max_reconnect_tries", 10)
	v.SetDefault("terminal.bridge_version", ">= 1.0.0, < 2.0.0")

	v.SetDefault("orders.deviation", 20)
	v.SetDefault("orders.magic", 0)
	v.SetDefault("orders.comment", "")
	v.SetDefault("orders.type_filling", "ioc")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 0)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "terminal-gateway")
	v.SetDefault("tracing.agent_host", "localhost")
	v.SetDefault("tracing.agent_port", 6831)

	v.SetDefault("alerting.enabled", false)

	v.SetDefault("shutdown.timeout_sec", 15)
}

// Load loads configuration from a YAML file. An empty path uses the
// defaults and environment overrides only.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if !validPort(c.Server.Port) {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	// Terminal validation
	switch c.Terminal.Mode {
	case ModeBridge:
		if c.Terminal.Host == "" {
			errs = append(errs, "terminal.host is required for bridge mode")
		}
		if !validPort(c.Terminal.Port) {
			errs = append(errs, "terminal.port must be between 1 and 65535")
		}
		if c.Terminal.BridgeVersion != "" {
			if _, err := semver.NewConstraint(c.Terminal.BridgeVersion); err != nil {
				errs = append(errs, fmt.Sprintf("terminal.bridge_version '%s' is not a valid constraint", c.Terminal.BridgeVersion))
			}
		}
	case ModePaper:
	default:
		errs = append(errs, fmt.Sprintf("terminal.mode must be 'bridge' or 'paper', got '%s'", c.Terminal.Mode))
	}
	if c.Terminal.RequestTimeoutSec <= 0 {
		errs = append(errs, "terminal.request_timeout_sec must be positive")
	}
	if c.Terminal.MaxRequestsPerSecond < 0 {
		errs = append(errs, "terminal.max_requests_per_second must not be negative")
	}

	// Orders validation
	if c.Orders.Deviation < 0 {
		errs = append(errs, "orders.deviation must not be negative")
	}
	if _, err := types.ParseFillPolicy(c.Orders.TypeFilling); err != nil {
		errs = append(errs, fmt.Sprintf("orders.type_filling '%s' must be fok, ioc or return", c.Orders.TypeFilling))
	}

	// Logging validation
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level '%s' is not supported", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, "logging.format must be 'json' or 'console'")
	}

	// Metrics validation
	if c.Metrics.Enabled {
		if c.Metrics.Port != 0 && !validPort(c.Metrics.Port) {
			errs = append(errs, "metrics.port must be 0 or between 1 and 65535")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with '/'")
		}
	}

	// Tracing validation
	if c.Tracing.Enabled {
		if c.Tracing.ServiceName == "" {
			errs = append(errs, "tracing.service_name is required")
		}
		if !validPort(c.Tracing.AgentPort) {
			errs = append(errs, "tracing.agent_port must be between 1 and 65535")
		}
	}

	// Alerting validation
	if c.Alerting.Enabled {
		if len(c.Alerting.Channels) == 0 {
			errs = append(errs, "alerting.channels must not be empty when alerting is enabled")
		}
		for i, ch := range c.Alerting.Channels {
			switch ch.Type {
			case "telegram":
				if ch.BotToken == "" || ch.ChatID == "" {
					errs = append(errs, fmt.Sprintf("alerting.channels[%d]: telegram requires bot_token and chat_id", i))
				}
			case "console":
			default:
				errs = append(errs, fmt.Sprintf("alerting.channels[%d]: unsupported type '%s'", i, ch.Type))
			}
		}
		for _, e := range c.Alerting.Events {
			if e != "all" && !alerting.IsKnownEvent(e) {
				errs = append(errs, fmt.Sprintf("alerting.events: unknown event '%s'", e))
			}
		}
	}

	// Shutdown validation
	if c.Shutdown.TimeoutSec <= 0 {
		errs = append(errs, "shutdown.timeout_sec must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ReadTimeout returns the HTTP read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the HTTP write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSec) * time.Second
}

// RequestTimeout returns the per-call terminal timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Terminal.RequestTimeoutSec) * time.Second
}

// ShutdownTimeout returns the shutdown timeout duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Shutdown.TimeoutSec) * time.Second
}

// BridgeConfig converts the terminal section to bridge.Config.
func (c *Config) BridgeConfig() bridge.Config {
	bc := bridge.DefaultConfig()
	bc.Host = c.Terminal.Host
	bc.Port = c.Terminal.Port
	bc.ConnectTimeout = time.Duration(c.Terminal.ConnectTimeoutSec) * time.Second
	bc.MaxRequestsPerSecond = c.Terminal.MaxRequestsPerSecond
	bc.AutoReconnect = c.Terminal.AutoReconnect
	bc.ReconnectInterval = time.Duration(c.Terminal.ReconnectIntervalSec) * time.Second
	bc.MaxReconnectTries = c.Terminal.MaxReconnectTries
	bc.VersionConstraint = c.Terminal.BridgeVersion
	return bc
}

// OrderDefaults converts the orders section to gateway.OrderDefaults.
// The configuration must have been validated.
func (c *Config) OrderDefaults() gateway.OrderDefaults {
	fill, err := types.ParseFillPolicy(c.Orders.TypeFilling)
	if err != nil {
		fill = types.FillIOC
	}
	return gateway.OrderDefaults{
		Deviation:  c.Orders.Deviation,
		Magic:      c.Orders.Magic,
		Comment:    c.Orders.Comment,
		FillPolicy: fill,
	}
}

// IsAlertEventEnabled checks if an alert event type is enabled.
func (c *Config) IsAlertEventEnabled(event string) bool {
	if !c.Alerting.Enabled {
		return false
	}
	// If no events specified, all are enabled
	if len(c.Alerting.Events) == 0 {
		return true
	}
	for _, e := range c.Alerting.Events {
		if e == event || e == "all" {
			return true
		}
	}
	return false
}

// AlertEvents returns the events to deliver. Nil means every event.
func (c *Config) AlertEvents() []alerting.AlertEvent {
	for _, e := range c.Alerting.Events {
		if e == "all" {
			return nil
		}
	}
	if len(c.Alerting.Events) == 0 {
		return nil
	}
	return alerting.ParseEvents(c.Alerting.Events)
}

// Dump renders the effective configuration as YAML with secrets masked.
func (c *Config) Dump() ([]byte, error) {
	masked := *c
	masked.Alerting.Channels = make([]ChannelConfig, len(c.Alerting.Channels))
	for i, ch := range c.Alerting.Channels {
		if ch.BotToken != "" {
			ch.BotToken = "***"
		}
		masked.Alerting.Channels[i] = ch
	}
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return out, nil
}
