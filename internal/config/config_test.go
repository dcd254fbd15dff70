package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tathienbao/terminal-gateway/internal/alerting"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

func TestLoadFromBytes_Valid(t *testing.T) {
	yaml := `
server:
  host: 127.0.0.1
  port: 8080

terminal:
  mode: bridge
  host: terminal.internal
  port: 18813
  request_timeout_sec: 5
  bridge_version: ">= 1.2.0"

orders:
  deviation: 10
  magic: 42
  comment: "gw"
  type_filling: fok

logging:
  level: debug
  format: console
`

	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr = %s, want 127.0.0.1:8080", cfg.Addr())
	}
	if cfg.Terminal.Host != "terminal.internal" {
		t.Errorf("Terminal.Host = %s, want terminal.internal", cfg.Terminal.Host)
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}

	d := cfg.OrderDefaults()
	if d.Deviation != 10 || d.Magic != 42 || d.Comment != "gw" || d.FillPolicy != types.FillFOK {
		t.Errorf("OrderDefaults = %+v", d)
	}

	// Unset keys keep their defaults
	if cfg.Terminal.MaxRequestsPerSecond != 50 {
		t.Errorf("MaxRequestsPerSecond = %d, want 50", cfg.Terminal.MaxRequestsPerSecond)
	}
	if cfg.Server.WriteTimeoutSec != 30 {
		t.Errorf("WriteTimeoutSec = %d, want 30", cfg.Server.WriteTimeoutSec)
	}
}

func TestLoadFromBytes_Defaults(t *testing.T) {
	cfg, err := LoadFromBytes(nil)
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"server.port", cfg.Server.Port, 5001},
		{"server.host", cfg.Server.Host, "0.0.0.0"},
		{"terminal.mode", cfg.Terminal.Mode, ModeBridge},
		{"terminal.port", cfg.Terminal.Port, 18812},
		{"terminal.auto_reconnect", cfg.Terminal.AutoReconnect, true},
		{"orders.deviation", cfg.Orders.Deviation, 20},
		{"orders.type_filling", cfg.Orders.TypeFilling, "ioc"},
		{"metrics.enabled", cfg.Metrics.Enabled, true},
		{"metrics.path", cfg.Metrics.Path, "/metrics"},
		{"tracing.enabled", cfg.Tracing.Enabled, false},
		{"tracing.agent_port", cfg.Tracing.AgentPort, 6831},
		{"shutdown.timeout_sec", cfg.Shutdown.TimeoutSec, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoadFromBytes_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "bad server port",
			yaml: `
server:
  port: 70000
`,
			wantErr: "server.port",
		},
		{
			name: "unknown terminal mode",
			yaml: `
terminal:
  mode: rpc
`,
			wantErr: "terminal.mode",
		},
		{
			name: "bridge without host",
			yaml: `
terminal:
  host: ""
`,
			wantErr: "terminal.host",
		},
		{
			name: "bad version constraint",
			yaml: `
terminal:
  bridge_version: "not a version"
`,
			wantErr: "terminal.bridge_version",
		},
		{
			name: "zero request timeout",
			yaml: `
terminal:
  request_timeout_sec: 0
`,
			wantErr: "terminal.request_timeout_sec",
		},
		{
			name: "negative deviation",
			yaml: `
orders:
  deviation: -1
`,
			wantErr: "orders.deviation",
		},
		{
			name: "unknown fill policy",
			yaml: `
orders:
  type_filling: partial
`,
			wantErr: "orders.type_filling",
		},
		{
			name: "unknown log level",
			yaml: `
logging:
  level: verbose
`,
			wantErr: "logging.level",
		},
		{
			name: "relative metrics path",
			yaml: `
metrics:
  path: metrics
`,
			wantErr: "metrics.path",
		},
		{
			name: "tracing without service name",
			yaml: `
tracing:
  enabled: true
  service_name: ""
`,
			wantErr: "tracing.service_name",
		},
		{
			name: "alerting without channels",
			yaml: `
alerting:
  enabled: true
`,
			wantErr: "alerting.channels",
		},
		{
			name: "telegram without chat id",
			yaml: `
alerting:
  enabled: true
  channels:
    - type: telegram
      bot_token: abc
`,
			wantErr: "bot_token and chat_id",
		},
		{
			name: "unknown alert event",
			yaml: `
alerting:
  enabled: true
  channels:
    - type: console
  events: [daily_summary]
`,
			wantErr: "daily_summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, types.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error %q should contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
server:
  port: 0
shutdown:
  timeout_sec: 0
`))
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	for _, want := range []string{"server.port", "shutdown.timeout_sec"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error %q should contain %q", err.Error(), want)
		}
	}
}

func TestLoadFromBytes_PaperModeSkipsBridgeChecks(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
terminal:
  mode: paper
  host: ""
  port: 0
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Terminal.Mode != ModePaper {
		t.Errorf("Mode = %s, want paper", cfg.Terminal.Mode)
	}
}

func TestLoadFromBytes_ParseError(t *testing.T) {
	_, err := LoadFromBytes([]byte("server: [unclosed"))
	if err == nil {
		t.Fatal("Expected parse error")
	}
	if errors.Is(err, types.ErrInvalidConfig) {
		t.Error("Parse errors should not be reported as invalid configuration")
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
server:
  read_timeout_sec: 3
  write_timeout_sec: 7
shutdown:
  timeout_sec: 20
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ReadTimeout() != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want 3s", cfg.ReadTimeout())
	}
	if cfg.WriteTimeout() != 7*time.Second {
		t.Errorf("WriteTimeout = %v, want 7s", cfg.WriteTimeout())
	}
	if cfg.ShutdownTimeout() != 20*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 20s", cfg.ShutdownTimeout())
	}
}

func TestConfig_BridgeConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
terminal:
  host: 10.0.0.5
  port: 19000
  connect_timeout_sec: 3
  max_requests_per_second: 5
  auto_reconnect: false
  reconnect_interval_sec: 2
  max_reconnect_tries: 4
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	bc := cfg.BridgeConfig()
	if bc.Host != "10.0.0.5" || bc.Port != 19000 {
		t.Errorf("address = %s:%d, want 10.0.0.5:19000", bc.Host, bc.Port)
	}
	if bc.ConnectTimeout != 3*time.Second {
		t.Errorf("ConnectTimeout = %v, want 3s", bc.ConnectTimeout)
	}
	if bc.MaxRequestsPerSecond != 5 {
		t.Errorf("MaxRequestsPerSecond = %d, want 5", bc.MaxRequestsPerSecond)
	}
	if bc.AutoReconnect {
		t.Error("AutoReconnect should be false")
	}
	if bc.ReconnectInterval != 2*time.Second || bc.MaxReconnectTries != 4 {
		t.Errorf("reconnect = %v x%d, want 2s x4", bc.ReconnectInterval, bc.MaxReconnectTries)
	}
	if bc.VersionConstraint != ">= 1.0.0, < 2.0.0" {
		t.Errorf("VersionConstraint = %q", bc.VersionConstraint)
	}
}

func TestLoad_FromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yaml := `
server:
  port: 6001
terminal:
  mode: paper
`

	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 6001 {
		t.Errorf("Server.Port = %d, want 6001", cfg.Server.Port)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "my-secret-token")

	yaml := `
alerting:
  enabled: true
  channels:
    - type: telegram
      bot_token: "${TEST_BOT_TOKEN}"
      chat_id: "12345"
`

	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if len(cfg.Alerting.Channels) == 0 {
		t.Fatal("Expected alerting channels")
	}

	if cfg.Alerting.Channels[0].BotToken != "my-secret-token" {
		t.Errorf("BotToken = %s, want my-secret-token", cfg.Alerting.Channels[0].BotToken)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_TERMINAL_HOST", "bridge.example")
	t.Setenv("GATEWAY_SERVER_PORT", "5002")
	t.Setenv("GATEWAY_ORDERS_TYPE_FILLING", "return")

	cfg, err := LoadFromBytes([]byte(`
terminal:
  host: from-file
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Terminal.Host != "bridge.example" {
		t.Errorf("Terminal.Host = %s, want bridge.example", cfg.Terminal.Host)
	}
	if cfg.Server.Port != 5002 {
		t.Errorf("Server.Port = %d, want 5002", cfg.Server.Port)
	}
	if cfg.OrderDefaults().FillPolicy != types.FillReturn {
		t.Errorf("FillPolicy = %v, want return", cfg.OrderDefaults().FillPolicy)
	}
}

func TestConfig_IsAlertEventEnabled(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AlertingConfig
		event   string
		enabled bool
	}{
		{"disabled", AlertingConfig{Enabled: false}, "connection_lost", false},
		{"no filter", AlertingConfig{Enabled: true}, "connection_lost", true},
		{"listed", AlertingConfig{Enabled: true, Events: []string{"connection_lost"}}, "connection_lost", true},
		{"not listed", AlertingConfig{Enabled: true, Events: []string{"order_rejected"}}, "connection_lost", false},
		{"all", AlertingConfig{Enabled: true, Events: []string{"all"}}, "connection_lost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Alerting: tt.cfg}
			if got := cfg.IsAlertEventEnabled(tt.event); got != tt.enabled {
				t.Errorf("IsAlertEventEnabled(%s) = %v, want %v", tt.event, got, tt.enabled)
			}
		})
	}
}

func TestConfig_AlertEvents(t *testing.T) {
	cfg := &Config{Alerting: AlertingConfig{Enabled: true}}
	if cfg.AlertEvents() != nil {
		t.Error("no filter should deliver every event")
	}

	cfg.Alerting.Events = []string{"all", "order_rejected"}
	if cfg.AlertEvents() != nil {
		t.Error("'all' should deliver every event")
	}

	cfg.Alerting.Events = []string{"bulk_close_failed", "connection_lost"}
	got := cfg.AlertEvents()
	want := []alerting.AlertEvent{alerting.EventBulkCloseFailed, alerting.EventConnectionLost}
	if len(got) != len(want) {
		t.Fatalf("AlertEvents = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AlertEvents[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestConfig_DumpMasksSecrets(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
alerting:
  enabled: true
  channels:
    - type: telegram
      bot_token: "123:secret"
      chat_id: "42"
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	out, err := cfg.Dump()
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	if strings.Contains(string(out), "123:secret") {
		t.Error("Dump should mask the bot token")
	}
	if !strings.Contains(string(out), "chat_id: \"42\"") {
		t.Errorf("Dump should keep chat_id, got:\n%s", out)
	}
	if cfg.Alerting.Channels[0].BotToken != "123:secret" {
		t.Error("Dump must not modify the config")
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")

	cfg, err := Load(filepath.Join("..", "..", "configs", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Failed to load example config: %v", err)
	}

	if cfg.Terminal.Mode != ModeBridge {
		t.Errorf("Terminal.Mode = %s, want bridge", cfg.Terminal.Mode)
	}
	if len(cfg.Alerting.Channels) != 2 {
		t.Fatalf("len(Alerting.Channels) = %d, want 2", len(cfg.Alerting.Channels))
	}
	if cfg.Alerting.Channels[0].ChatID != "12345" {
		t.Errorf("ChatID = %q, want 12345", cfg.Alerting.Channels[0].ChatID)
	}
	if cfg.AlertEvents() != nil {
		t.Errorf("AlertEvents() = %v, want nil", cfg.AlertEvents())
	}
}
