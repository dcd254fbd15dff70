// Package app wires the gateway components into an fx application.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/alerting"
	"github.com/tathienbao/terminal-gateway/internal/api"
	"github.com/tathienbao/terminal-gateway/internal/config"
	"github.com/tathienbao/terminal-gateway/internal/gateway"
	"github.com/tathienbao/terminal-gateway/internal/metrics"
	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/terminal/bridge"
	"github.com/tathienbao/terminal-gateway/internal/terminal/paper"
	"github.com/tathienbao/terminal-gateway/pkg/logger"
	"github.com/tathienbao/terminal-gateway/pkg/tracing"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// New builds the application for cfg.
func New(cfg *config.Config, info BuildInfo, opts ...fx.Option) *fx.App {
	return fx.New(
		fx.Supply(cfg, info),
		fx.StopTimeout(cfg.ShutdownTimeout()),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
		Module(),
		fx.Options(opts...),
	)
}

// Module provides every gateway component and registers their lifecycles.
func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(
			NewLogger,
			NewTracer,
			NewTerminal,
			NewAlerter,
			NewNotifier,
			metrics.NewRecorder,
			NewSession,
			NewService,
			NewMetricsServer,
			NewAPIServer,
		),
		fx.Invoke(
			RegisterSession,
			RegisterNotifier,
			RegisterMetricsServer,
			RegisterAPIServer,
		),
	)
}

// NewLogger builds the process logger and flushes it on stop.
func NewLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	l, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() {
		_ = l.Sync()
	}))
	return l, nil
}

// NewTracer installs the global tracer and closes it on stop.
func NewTracer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (opentracing.Tracer, error) {
	tracer, closer, err := tracing.InitTracer(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Host:        cfg.Tracing.AgentHost,
		Port:        cfg.Tracing.AgentPort,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Tracing.Enabled {
		log.Info("tracing enabled",
			zap.String("agent", fmt.Sprintf("%s:%d", cfg.Tracing.AgentHost, cfg.Tracing.AgentPort)))
	}
	lc.Append(fx.StopHook(closer.Close))
	return tracer, nil
}

// NewTerminal selects the terminal adapter for the configured mode.
func NewTerminal(cfg *config.Config, log *zap.Logger) (terminal.Terminal, error) {
	switch cfg.Terminal.Mode {
	case config.ModePaper:
		log.Warn("running against the paper terminal, orders are simulated")
		return paper.New(paper.DefaultConfig(), log), nil
	case config.ModeBridge:
		client, err := bridge.NewClient(cfg.BridgeConfig(), log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown terminal mode %q", cfg.Terminal.Mode)
	}
}

// NewAlerter builds the configured alert channels. It returns nil when
// alerting is disabled.
func NewAlerter(cfg *config.Config, log *zap.Logger) (alerting.Alerter, error) {
	if !cfg.Alerting.Enabled {
		return nil, nil
	}

	multi := alerting.NewMultiAlerter(log)
	for _, ch := range cfg.Alerting.Channels {
		switch strings.ToLower(ch.Type) {
		case "telegram":
			tg, err := alerting.NewTelegramAlerter(alerting.TelegramConfig{
				BotToken: ch.BotToken,
				ChatID:   ch.ChatID,
			})
			if err != nil {
				return nil, err
			}
			multi.AddAlerter(tg)
		case "console":
			multi.AddAlerter(alerting.NewConsoleAlerter(log))
		default:
			return nil, fmt.Errorf("unknown alert channel %q", ch.Type)
		}
	}
	log.Info("alerting enabled", zap.Strings("channels", multi.Channels()))
	return multi, nil
}

// NewNotifier routes the configured events to alerter.
func NewNotifier(cfg *config.Config, alerter alerting.Alerter, log *zap.Logger) *alerting.Notifier {
	return alerting.NewNotifier(alerter, log, cfg.AlertEvents()...)
}

// NewSession serializes access to term.
func NewSession(cfg *config.Config, term terminal.Terminal, log *zap.Logger, rec *metrics.Recorder, n *alerting.Notifier) *terminal.Session {
	return terminal.NewSession(term, cfg.RequestTimeout(), log, terminal.Observers{
		rec,
		alerting.NewConnectionObserver(n),
	})
}

// NewService builds the gateway service.
func NewService(cfg *config.Config, session *terminal.Session, log *zap.Logger, rec *metrics.Recorder, n *alerting.Notifier) *gateway.Service {
	return gateway.NewService(session,
		gateway.WithLogger(log),
		gateway.WithRecorder(rec),
		gateway.WithNotifier(n),
		gateway.WithDefaults(cfg.OrderDefaults()),
	)
}

// NewMetricsServer builds the metrics and health endpoints.
func NewMetricsServer(cfg *config.Config, session *terminal.Session, log *zap.Logger) *metrics.Server {
	s := metrics.NewServer(metrics.ServerConfig{
		Port:        cfg.Metrics.Port,
		MetricsPath: cfg.Metrics.Path,
		HealthPath:  "/health",
	}, log)
	s.RegisterHealthCheck("terminal", metrics.CheckFunc(session.Check))
	return s
}

// NewAPIServer builds the HTTP API. The metrics endpoints share its listener
// unless they have a port of their own.
func NewAPIServer(cfg *config.Config, svc *gateway.Service, log *zap.Logger, rec *metrics.Recorder,
	tracer opentracing.Tracer, ms *metrics.Server) *api.Server {
	opts := []api.Option{
		api.WithLogger(log),
		api.WithRecorder(rec),
		api.WithTracer(tracer),
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		opts = append(opts, api.WithMounts(ms))
	}
	return api.NewServer(api.Config{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}, svc, opts...)
}

// RegisterSession opens the terminal on start and shuts it down on stop.
// A terminal that is down at startup does not stop the gateway; the next
// request retries.
func RegisterSession(lc fx.Lifecycle, session *terminal.Session, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := session.Open(ctx); err != nil {
				log.Warn("terminal not available at startup", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return session.Close(ctx)
		},
	})
}

// RegisterNotifier announces start and stop and drains pending alerts.
func RegisterNotifier(lc fx.Lifecycle, cfg *config.Config, info BuildInfo, n *alerting.Notifier) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			metrics.SetBuildInfo(info.Version, info.Commit, info.Date)
			n.NotifyAsync(alerting.EventGatewayStarted, "gateway started",
				"version", info.Version,
				"mode", cfg.Terminal.Mode,
				"addr", cfg.Addr(),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			n.Notify(ctx, alerting.EventGatewayStopped, "gateway stopped", "version", info.Version)
			n.Wait()
			return nil
		},
	})
}

// RegisterMetricsServer runs the standalone metrics listener when enabled.
func RegisterMetricsServer(lc fx.Lifecycle, cfg *config.Config, ms *metrics.Server) {
	if !cfg.Metrics.Enabled || cfg.Metrics.Port == 0 {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return ms.Start()
		},
		OnStop: ms.Shutdown,
	})
}

// RegisterAPIServer serves the API between start and stop.
func RegisterAPIServer(lc fx.Lifecycle, s *api.Server, log *zap.Logger, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Start(ctx); err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
			}
			log.Info("gateway listening",
				zap.String("addr", s.Addr()),
				zap.String("terminal_mode", cfg.Terminal.Mode),
			)
			return nil
		},
		OnStop: s.Shutdown,
	})
}
