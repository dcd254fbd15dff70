// Package main is the entry point for the terminal gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/tathienbao/terminal-gateway/internal/app"
	"github.com/tathienbao/terminal-gateway/internal/config"
)

// Version information (set by build flags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration `FILE`; defaults and GATEWAY_* variables apply when omitted",
		Sources: cli.EnvVars("GATEWAY_CONFIG"),
	}

	return &cli.Command{
		Name:    "terminal-gateway",
		Usage:   "HTTP gateway to a trading terminal",
		Version: Version,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start the gateway",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "paper",
						Usage: "Use the in-memory paper terminal regardless of terminal.mode",
					},
				},
				Action: cmdRun,
			},
			{
				Name:   "validate",
				Usage:  "Validate a configuration file and print the effective settings",
				Flags:  []cli.Flag{configFlag},
				Action: cmdValidate,
			},
			{
				Name:   "version",
				Usage:  "Show version information",
				Action: cmdVersion,
			},
		},
	}
}

func cmdVersion(_ context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer
	fmt.Fprintf(w, "terminal-gateway version %s\n", Version)
	fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	return nil
}

func cmdValidate(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	out, err := cfg.Dump()
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	fmt.Fprintln(w, "Configuration is valid!")
	fmt.Fprintln(w)
	_, err = w.Write(out)
	return err
}

func cmdRun(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cmd.Bool("paper") {
		cfg.Terminal.Mode = config.ModePaper
	}

	// Prices and volumes go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	gw := app.New(cfg, app.BuildInfo{Version: Version, Commit: GitCommit, Date: BuildTime})
	if err := gw.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, gw.StartTimeout())
	defer cancel()
	if err := gw.Start(startCtx); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-gw.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), gw.StopTimeout())
	defer stopCancel()
	return gw.Stop(stopCtx)
}
