package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"kinobot/internal/catalog"
	"kinobot/internal/config"
	"kinobot/internal/logging"
	"kinobot/internal/metrics"
	"kinobot/internal/notifications"
	"kinobot/internal/storage"
)

var errCatalogLocked = errors.New("the catalog is locked by a running kinobot daemon; stop it before changing the catalog")

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.flagPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) logger() *slog.Logger {
	logger, err := logging.NewFromConfig(c.config, "")
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// catalogSession is an open catalog document with its backend and, for
// mutating commands, the instance lock.
type catalogSession struct {
	cfg     *config.Config
	store   *catalog.Store
	backend storage.Backend
	lock    *flock.Flock
	logger  *slog.Logger
}

func (s *catalogSession) close() {
	_ = s.backend.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}

// withCatalog opens the configured catalog for fn. When mutate is set the
// daemon lock is held for the duration of fn.
func (c *commandContext) withCatalog(mutate bool, fn func(*catalogSession) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	session := &catalogSession{cfg: cfg, logger: c.logger()}
	if mutate {
		lock := flock.New(cfg.LockPath())
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return errCatalogLocked
		}
		session.lock = lock
	}
	backend, err := storage.Open(cfg)
	if err != nil {
		if session.lock != nil {
			_ = session.lock.Unlock()
		}
		return fmt.Errorf("open catalog storage: %w", err)
	}
	session.backend = backend
	defer session.close()

	session.store = catalog.NewStore(backend, cfg.Storage.Document,
		catalog.WithLogger(session.logger),
		catalog.WithNotifier(notifications.NewService(cfg)),
		catalog.WithSizeObserver(metrics.SetCatalogSize),
	)
	return fn(session)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
