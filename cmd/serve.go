package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/ntfy-go/internal/api"
	"github.com/shaharia-lab/ntfy-go/internal/build"
	"github.com/shaharia-lab/ntfy-go/internal/config"
	"github.com/shaharia-lab/ntfy-go/internal/eventbus"
	"github.com/shaharia-lab/ntfy-go/internal/logger"
	"github.com/shaharia-lab/ntfy-go/internal/metrics"
	"github.com/shaharia-lab/ntfy-go/internal/notification"
	"github.com/shaharia-lab/ntfy-go/internal/scheduler"
	"github.com/shaharia-lab/ntfy-go/internal/server"
	"github.com/shaharia-lab/ntfy-go/internal/service"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
	"github.com/shaharia-lab/ntfy-go/internal/telemetry"
)

const serviceName = "ntfy-go"

// NewServeCmd returns the "serve" subcommand that runs the HTTP relay and the
// publish scheduler.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP relay and publish scheduler",
		Long: `Start the HTTP relay. Clients POST JSON messages to /api/publish and the relay
forwards them to the configured ntfy server with its credentials. Scheduled
publishes are read from the schedules file and failed publishes are reported
by e-mail when SMTP is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			logFile := filepath.Join(cfg.LogDir(), "system.log")
			printBanner(cmd, cfg, logFile)

			if err := runServe(cmd.Context(), cfg); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "An error occurred. Please check the logs at: %s\n", logFile)
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	cmd.Flags().StringVar(&cfg.SchedulesFile, "schedules", cfg.SchedulesFile, "schedules file (overrides NTFY_SCHEDULES_FILE env var)")
	return cmd
}

func runServe(parent context.Context, cfg *config.AppConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m, reg := metrics.NewDefault()

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    serviceName,
		ServiceVersion: build.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		Registerer:     reg,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	var extra []slog.Handler
	if tel.LogHandler != nil {
		extra = append(extra, tel.LogHandler)
	}
	sysLogger, logCloser, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel(), extra...)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logCloser.Close() //nolint:errcheck

	sysLogger.Info("ntfy relay starting",
		slog.Int("port", cfg.Port),
		slog.String("server_url", cfg.ServerURL),
		slog.String("data_dir", cfg.DataDir),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
		slog.String("build_date", build.BuildDate),
		slog.Bool("otlp", cfg.OTLPEndpoint != ""),
	)

	d, err := cfg.DispatcherBuilder(sysLogger).Build()
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	store := storage.NewSQLitePublishStore(db)

	bus := eventbus.New(0, sysLogger)
	defer bus.Close()

	var alertProvider notification.Provider
	if cfg.SMTP.Enabled() {
		alertProvider = notification.NewSMTPProvider(notification.SMTPConfig(cfg.SMTP))
		bus.Subscribe(notification.NewAlertHandler(alertProvider, store, sysLogger).Handle)
		sysLogger.Info("e-mail alerts enabled", "host", cfg.SMTP.Host, "to", cfg.SMTP.ToAddrs)
	}

	publishSvc := service.NewPublishService(d, store, bus, m, sysLogger)
	alertSvc := service.NewAlertService(alertProvider, store)

	schedules, err := config.LoadSchedules(cfg.SchedulesFile)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}
	sched, err := scheduler.New(scheduler.Config{
		Schedules: schedules,
		Publisher: publishSvc,
		Logger:    sysLogger,
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			sysLogger.Warn("stopping scheduler", "error", err)
		}
	}()

	apiSrv := api.New(publishSvc, alertSvc, sysLogger).WithSchedules(sched)
	srv := server.New(apiSrv, server.Options{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins(),
		Metrics:        m.Handler(),
	}, sysLogger)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sysLogger.Error("server stopped", "error", err)
		return err
	}
	sysLogger.Info("ntfy relay stopped")
	return nil
}

// printBanner writes the startup summary. Structured logs go to the log file.
func printBanner(cmd *cobra.Command, cfg *config.AppConfig, logFile string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, successStyle.Render("ntfy relay "+build.Version))
	fmt.Fprintln(out, field("listening", fmt.Sprintf("http://localhost:%d/api/publish", cfg.Port)))
	fmt.Fprintln(out, field("upstream", cfg.ServerURL))
	fmt.Fprintln(out, field("schedules", cfg.SchedulesFile))
	fmt.Fprintln(out, field("logs", logFile))
	fmt.Fprintln(out)
}
