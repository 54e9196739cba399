package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/znetops/netmon/internal/config"
	"github.com/znetops/netmon/internal/dashboard"
	"github.com/znetops/netmon/internal/engine"
	"github.com/znetops/netmon/internal/history"
	"github.com/znetops/netmon/internal/logging"
	"github.com/znetops/netmon/internal/notify"
	"github.com/znetops/netmon/internal/server"
	"github.com/znetops/netmon/internal/status"
	"github.com/znetops/netmon/internal/store"
	"github.com/znetops/netmon/internal/version"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "netmon",
		Short:        "Network host reachability monitor",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("netmon %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring engine and API server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load config; a bad target list refuses to start.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("config_loaded", zap.Int("targets", len(cfg.Targets)))

	// 2. Durable stores.
	state, err := store.NewStateStore(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	alertLog, err := store.NewAlertLog(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("opening alert log: %w", err)
	}
	hist, err := history.Open(cfg.Data.History)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer hist.Close()

	// 3. Notifiers (if configured).
	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}

	// 4. Monitoring engine.
	eng, err := engine.New(logger, engine.Options{
		Registry: cfg.Targets,
		Thresholds: status.Thresholds{
			DownFailures:    cfg.Thresholds.DownFailures,
			DegradedLatency: cfg.Thresholds.DegradedLatency.Duration,
		},
		Interval:    cfg.Interval.Duration,
		Concurrency: cfg.Concurrency,
		State:       state,
		Alerts:      alertLog,
		History:     hist,
		Notifier:    notifier,
	})
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	if err := eng.Hydrate(); err != nil {
		logger.Warn("hydrate_failed", zap.Error(err))
	}

	// 5. API server + dashboard on a single mux.
	apiServer := server.New(state, alertLog, hist, cfg.Targets, logger)
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("/", dashboard.Handler())

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	// 6. Signal context for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 7. Run the engine; it finishes its in-flight cycle on cancel.
	engineDone := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(engineDone)
	}()

	// 8. Start HTTP server in background.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 9. Wait for signal or server error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal_received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	}

	// 10. Graceful shutdown.
	<-engineDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown", zap.Error(err))
	}

	logger.Info("shutdown_complete")
	return nil
}

func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	var notifiers notify.Multi

	if wh := notify.NewWebhook(cfg.Webhook.URL); wh != nil {
		notifiers = append(notifiers, notify.WithCooldown(wh, cfg.Webhook.Cooldown.Duration))
	}

	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		return nil, fmt.Errorf("building telegram notifier: %w", err)
	}
	if tg != nil {
		notifiers = append(notifiers, notify.WithCooldown(tg, cfg.Telegram.Cooldown.Duration))
	}

	if len(notifiers) == 0 {
		return nil, nil
	}
	return notifiers, nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a one-off probe of all configured targets",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return executeCheck(cmd, cfg)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the last persisted status snapshot",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	state, err := store.NewStateStore(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}

	return executeStatus(cmd, state)
}
