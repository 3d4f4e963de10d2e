package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"kinobot/internal/backup"
	"kinobot/internal/catalog"
	"kinobot/internal/config"
	"kinobot/internal/logging"
	"kinobot/internal/telegram"
)

// Poller delivers chat updates to a handler until its context ends.
type Poller interface {
	Run(ctx context.Context, handle telegram.Handler) error
}

// Components are the collaborators the daemon runs.
type Components struct {
	Store   *catalog.Store
	Poller  Poller
	Handler telegram.Handler
	// Scheduler is optional; nil disables scheduled backups.
	Scheduler *backup.Scheduler
	// Closer is optional and released by Close.
	Closer io.Closer
}

// Daemon runs the bot and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  Components
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}

	errMu   sync.Mutex
	pollErr error
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool   `json:"running"`
	LockFilePath   string `json:"lock_file"`
	APIAddress     string `json:"api_address,omitempty"`
	CatalogEntries int    `json:"catalog_entries"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, comps Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || comps.Store == nil || comps.Poller == nil || comps.Handler == nil {
		return nil, errors.New("daemon requires config, store, poller, and handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		comps:    comps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the lock and launches the poller, scheduler, and API server.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another kinobot instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if d.comps.Scheduler != nil {
		d.comps.Scheduler.Start()
	}

	d.cancel = cancel
	d.done = make(chan struct{})
	d.setErr(nil)
	d.wg.Add(1)
	go d.poll(runCtx, d.done)

	d.running.Store(true)
	d.logger.Info("kinobot daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) poll(ctx context.Context, done chan struct{}) {
	defer d.wg.Done()
	defer close(done)
	if err := d.comps.Poller.Run(ctx, d.comps.Handler); err != nil {
		d.setErr(err)
		logging.ErrorWithContext(d.logger, "update polling stopped", "poller_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check telegram.token and network reachability of api.telegram.org"),
			logging.String(logging.FieldImpact, "bot no longer receives updates"),
		)
	}
}

// Done is closed when the poller exits. It is nil before the first Start.
func (d *Daemon) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Err reports why the poller exited, if it failed. Valid after Done closes.
func (d *Daemon) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.pollErr
}

func (d *Daemon) setErr(err error) {
	d.errMu.Lock()
	d.pollErr = err
	d.errMu.Unlock()
}

// Stop drains in-flight updates, stops background work, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if d.comps.Scheduler != nil {
		d.comps.Scheduler.Stop()
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("kinobot daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the storage backend.
func (d *Daemon) Close() error {
	d.Stop()
	if d.comps.Closer != nil {
		return d.comps.Closer.Close()
	}
	return nil
}

// Addr returns the API listen address, or "" when the API is disabled or stopped.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		APIAddress:   d.Addr(),
	}
	if codes, err := d.comps.Store.Codes(ctx); err == nil {
		status.CatalogEntries = len(codes)
	}
	return status
}
