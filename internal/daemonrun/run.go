package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"kinobot/internal/access"
	"kinobot/internal/admin"
	"kinobot/internal/announce"
	"kinobot/internal/backup"
	"kinobot/internal/bot"
	"kinobot/internal/catalog"
	"kinobot/internal/config"
	"kinobot/internal/daemon"
	"kinobot/internal/delivery"
	"kinobot/internal/logging"
	"kinobot/internal/metrics"
	"kinobot/internal/notifications"
	"kinobot/internal/preflight"
	"kinobot/internal/storage"
	"kinobot/internal/telegram"
	"kinobot/internal/tokens"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the kinobot daemon and blocks until a signal arrives or update
// polling fails.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.ValidateDaemon(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := logging.RunLogPath(cfg.Logging.Dir, time.Now())
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
		RunID:       uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Logging.Dir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	if pruned := logging.PruneRunLogs(logger, cfg.Logging.Dir, cfg.Logging.RetentionDays, time.Now()); pruned > 0 {
		logger.Info("old run logs pruned", logging.Int("files", pruned), logging.String(logging.FieldEventType, "log_retention"))
	}
	logConfigSnapshot(logger, cfg)
	for _, failed := range preflight.Failed(preflight.Directories(cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "catalog writes or logs may fail"),
		)
	}

	pidPath := filepath.Join(cfg.Logging.Dir, "kinobot.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	backend, err := storage.Open(cfg)
	if err != nil {
		logger.Error("open catalog storage", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	store := catalog.NewStore(backend, cfg.Storage.Document,
		catalog.WithLogger(logger),
		catalog.WithNotifier(notifier),
		catalog.WithSizeObserver(metrics.SetCatalogSize),
	)

	d, err := build(cfg, store, backend, notifier, logger)
	if err != nil {
		_ = backend.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other instance or check storage.dir permissions"),
			logging.String(logging.FieldImpact, "bot is not serving requests"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	entries := 0
	if codes, err := store.Codes(signalCtx); err == nil {
		entries = len(codes)
		metrics.SetCatalogSize(entries)
	}
	if err := notifier.NotifyStarted(signalCtx, entries); err != nil {
		logger.Debug("startup notification failed", logging.Error(err))
	}

	var runErr error
	select {
	case <-signalCtx.Done():
	case <-d.Done():
		runErr = d.Err()
		if runErr != nil {
			if err := notifier.NotifyError(context.WithoutCancel(signalCtx), runErr, "update polling"); err != nil {
				logger.Debug("error notification failed", logging.Error(err))
			}
		}
	}
	logger.Info("kinobot daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return runErr
}

func build(cfg *config.Config, store *catalog.Store, backend storage.Backend, notifier notifications.Service, logger *slog.Logger) (*daemon.Daemon, error) {
	client, err := telegram.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	registry, err := tokens.New(cfg.Tokens.MaxUsers)
	if err != nil {
		return nil, fmt.Errorf("token registry: %w", err)
	}

	gate := access.NewGate(cfg, client, logger)
	mirror := announce.NewMirror(cfg, store, client, logger)
	svc := delivery.NewService(store, gate, registry, client, cfg.RequestTimeout(), logger)
	wf := admin.New(store, catalog.NewAllocator(nil), mirror, client, cfg.RequestTimeout(), logger)
	router := bot.NewRouter(cfg, svc, wf, gate, client, logger)

	var scheduler *backup.Scheduler
	if cfg.Backup.Enabled {
		scheduler, err = backup.NewScheduler(backup.NewService(cfg, store, notifier, logger), cfg.Backup.Schedule, logger)
		if err != nil {
			return nil, err
		}
	}

	d, err := daemon.New(cfg, daemon.Components{
		Store:     store,
		Poller:    client,
		Handler:   router.Handle,
		Scheduler: scheduler,
		Closer:    backend,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("bot_username", cfg.Telegram.BotUsername),
		logging.Int("admins", len(cfg.Admin.IDs)),
		logging.Bool("access_enabled", cfg.Access.Enabled),
		logging.Int("access_channels", len(cfg.Access.Channels)),
		logging.Int64("announce_channel", cfg.Announce.ChannelID),
		logging.String("storage_driver", cfg.Storage.Driver),
		logging.Bool("backup_enabled", cfg.Backup.Enabled),
		logging.String("api_bind", cfg.API.Bind),
		logging.Bool("api_token_set", cfg.API.Token != ""),
		logging.Bool("ntfy_configured", cfg.Notifications.NtfyTopic != ""),
	)
}
