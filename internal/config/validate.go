package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable by every command.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAccess(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	return nil
}

// ValidateDaemon adds the checks that only matter when the bot is run.
func (c *Config) ValidateDaemon() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("telegram.token is required. Set BOT_TOKEN env var or edit %s (create with 'kinobot config init')", defaultPath)
	}
	if c.Telegram.BotUsername == "" {
		return errors.New("telegram.bot_username is required to build announcement deep links (or set BOT_USERNAME)")
	}
	if len(c.Admin.IDs) == 0 {
		return errors.New("admin.ids must list at least one administrator (or set ADMIN_ID)")
	}
	if c.Announce.ChannelID == 0 {
		return errors.New("announce.channel_id must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be \"file\" or \"sqlite\", got %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return errors.New("storage.dir must be set")
	}
	if strings.ContainsAny(c.Storage.Document, `/\`) {
		return errors.New("storage.document must be a file name, not a path")
	}
	return nil
}

func (c *Config) validateAccess() error {
	if !c.Access.Enabled {
		return nil
	}
	if len(c.Access.Channels) == 0 {
		return errors.New("access.channels must list at least one channel when access.enabled is true (or set CHANNEL1_ID/CHANNEL2_ID)")
	}
	seen := make(map[int64]struct{}, len(c.Access.Channels))
	for i, ch := range c.Access.Channels {
		if ch.ID == 0 {
			return fmt.Errorf("access.channels[%d].id must be set", i)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("access.channels[%d].id %d is listed twice", i, ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
		return fmt.Errorf("backup.schedule: %w", err)
	}
	return nil
}

func (c *Config) validateLimits() error {
	return ensurePositiveMap(map[string]int{
		"telegram.poll_timeout":         c.Telegram.PollTimeout,
		"telegram.request_timeout":      c.Telegram.RequestTimeout,
		"telegram.workers":              c.Telegram.Workers,
		"access.timeout_seconds":        c.Access.TimeoutSeconds,
		"tokens.max_users":              c.Tokens.MaxUsers,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
