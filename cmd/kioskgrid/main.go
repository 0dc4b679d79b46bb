package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"

	"kioskgrid/internal/config"
	"kioskgrid/internal/feed"
	"kioskgrid/internal/kiosk"
	appLog "kioskgrid/internal/log"
	"kioskgrid/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	logLevel   string
	once       bool
	dump       bool
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := run(flags); err != nil {
		appLog.Error("kioskgrid failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Sync()
}

func parseFlags(args []string) (flagConfig, error) {
	var cfg flagConfig

	fs := pflag.NewFlagSet("kioskgrid", pflag.ContinueOnError)
	fs.StringVar(&cfg.configPath, "config", "/etc/kioskgrid/config.yaml", "Path to config file")
	fs.StringVar(&cfg.envPath, "env-file", ".env", "Optional .env file with KIOSK_* overrides")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	fs.StringVar(&cfg.logLevel, "log-level", "", "debug, info, warn or error (overrides config if set)")
	fs.BoolVar(&cfg.once, "once", false, "Fetch and project once, print the grid and exit")
	fs.BoolVar(&cfg.dump, "dump", false, "With --once, print the grid as JSON instead of a table")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(flags flagConfig) error {
	if err := config.LoadEnv(flags.envPath); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	conf.ApplyEnv()

	// CLI flags win over file and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	appLog.Setup(conf.Env, appLog.ParseLevel(conf.LogLevel))
	appLog.Info("kioskgrid starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"hours", fmt.Sprintf("%d..%d", conf.HourStart, conf.HourEnd),
		"window_days", conf.WindowDays,
		"day_names", conf.DayNames,
		"feed_kind", conf.Feed.Kind,
		"once", flags.once,
	)

	src, err := feed.NewSource(conf)
	if err != nil {
		return err
	}
	screen, err := kiosk.NewScreenFromConfig(conf, src)
	if err != nil {
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		return runOnce(ctx, screen, flags.dump)
	}
	return serve(ctx, conf, screen)
}

func runOnce(ctx context.Context, screen *kiosk.Screen, dump bool) error {
	if _, err := screen.Refresh(ctx); err != nil {
		return err
	}
	v := screen.View()
	if dump {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v.Grid)
	}
	return kiosk.RenderText(os.Stdout, v)
}

func serve(ctx context.Context, conf *config.Config, screen *kiosk.Screen) error {
	runner := kiosk.NewRunner(screen, conf.RefreshCron, conf.Location())
	if err := runner.Start(ctx); err != nil {
		return err
	}
	defer runner.Stop()

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, screen).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http shutdown failed", err)
	}
	appLog.Info("kioskgrid exiting")
	return nil
}
