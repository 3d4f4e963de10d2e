package testsupport

import (
	"path/filepath"
	"testing"

	"kinobot/internal/config"
)

// Test identities used across package tests.
const (
	AdminID         int64 = 1000
	UserID          int64 = 2000
	ChannelOneID    int64 = -1001
	ChannelTwoID    int64 = -1002
	AnnounceChannel int64 = -1002
	BotUsername           = "kino_test_bot"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a daemon-valid config seeded with unique temp directories
// per test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Telegram.Token = "123456:test"
	cfgVal.Telegram.BotUsername = BotUsername
	cfgVal.Admin.IDs = []int64{AdminID}
	cfgVal.Access.Channels = []config.Channel{
		{ID: ChannelOneID, Link: "https://t.me/+one"},
		{ID: ChannelTwoID, Link: "https://t.me/+two"},
	}
	cfgVal.Announce.ChannelID = AnnounceChannel
	cfgVal.Storage.Dir = filepath.Join(base, "data")
	cfgVal.Storage.SQLitePath = filepath.Join(base, "data", "catalog.db")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Backup.Dir = filepath.Join(base, "backups")
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAccessDisabled turns the membership gate off.
func WithAccessDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Access.Enabled = false
	}
}

// WithAdmins replaces the admin allow-list.
func WithAdmins(ids ...int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Admin.IDs = append([]int64(nil), ids...)
	}
}

// WithStorageDriver selects the catalog backend.
func WithStorageDriver(driver string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Driver = driver
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Storage.Dir)
}
