package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeTelegram()
	if err := c.normalizeAdmin(); err != nil {
		return err
	}
	if err := c.normalizeAccess(); err != nil {
		return err
	}
	if err := c.normalizeAnnounce(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	if err := c.normalizeBackup(); err != nil {
		return err
	}
	c.normalizeNotifications()
	return c.normalizeLogging()
}

func (c *Config) normalizeTelegram() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	if c.Telegram.Token == "" {
		if value, ok := os.LookupEnv("BOT_TOKEN"); ok {
			c.Telegram.Token = strings.TrimSpace(value)
		}
	}
	c.Telegram.BotUsername = strings.TrimSpace(c.Telegram.BotUsername)
	if c.Telegram.BotUsername == "" {
		if value, ok := os.LookupEnv("BOT_USERNAME"); ok {
			c.Telegram.BotUsername = strings.TrimSpace(value)
		}
	}
	c.Telegram.BotUsername = strings.TrimPrefix(c.Telegram.BotUsername, "@")
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultRequestTimeout
	}
	if c.Telegram.Workers <= 0 {
		c.Telegram.Workers = defaultWorkers
	}
	if c.Telegram.SendRate <= 0 {
		c.Telegram.SendRate = defaultSendRate
	}
}

func (c *Config) normalizeAdmin() error {
	if len(c.Admin.IDs) > 0 {
		return nil
	}
	value, ok := os.LookupEnv("ADMIN_ID")
	if !ok {
		return nil
	}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return fmt.Errorf("ADMIN_ID: invalid user id %q: %w", part, err)
		}
		c.Admin.IDs = append(c.Admin.IDs, id)
	}
	return nil
}

func (c *Config) normalizeAccess() error {
	if c.Access.TimeoutSeconds <= 0 {
		c.Access.TimeoutSeconds = defaultAccessTimeoutSeconds
	}
	if len(c.Access.Channels) == 0 {
		for _, pair := range [][2]string{{"CHANNEL1_ID", "CHANNEL1_LINK"}, {"CHANNEL2_ID", "CHANNEL2_LINK"}} {
			raw, ok := os.LookupEnv(pair[0])
			if !ok || strings.TrimSpace(raw) == "" {
				continue
			}
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("%s: invalid chat id %q: %w", pair[0], raw, err)
			}
			c.Access.Channels = append(c.Access.Channels, Channel{
				ID:   id,
				Link: strings.TrimSpace(os.Getenv(pair[1])),
			})
		}
	}
	for i := range c.Access.Channels {
		c.Access.Channels[i].Link = strings.TrimSpace(c.Access.Channels[i].Link)
	}
	return nil
}

func (c *Config) normalizeAnnounce() error {
	if c.Announce.ChannelID != 0 {
		return nil
	}
	// Without an explicit channel, announcements go to the second gated channel.
	for _, key := range []string{"ANNOUNCE_CHANNEL_ID", "CHANNEL2_ID"} {
		raw, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid chat id %q: %w", key, raw, err)
		}
		c.Announce.ChannelID = id
		return nil
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultStorageDriver
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		c.Storage.Dir = defaultDataDir
	}
	if c.Storage.Dir, err = expandPath(c.Storage.Dir); err != nil {
		return fmt.Errorf("storage.dir: %w", err)
	}
	c.Storage.Document = strings.TrimSpace(c.Storage.Document)
	if c.Storage.Document == "" {
		if value, ok := os.LookupEnv("MOVIES_FILE"); ok && strings.TrimSpace(value) != "" {
			c.Storage.Document = strings.TrimSpace(value)
		} else {
			c.Storage.Document = defaultDocument
		}
	}
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = filepath.Join(c.Storage.Dir, defaultSQLiteName)
	}
	if c.Storage.SQLitePath, err = expandPath(c.Storage.SQLitePath); err != nil {
		return fmt.Errorf("storage.sqlite_path: %w", err)
	}
	if c.Tokens.MaxUsers <= 0 {
		c.Tokens.MaxUsers = defaultTokensMaxUsers
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("KINOBOT_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeBackup() error {
	var err error
	if strings.TrimSpace(c.Backup.Dir) == "" {
		c.Backup.Dir = defaultBackupDir
	}
	if c.Backup.Dir, err = expandPath(c.Backup.Dir); err != nil {
		return fmt.Errorf("backup.dir: %w", err)
	}
	c.Backup.Schedule = strings.TrimSpace(c.Backup.Schedule)
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = defaultBackupSchedule
	}
	if c.Backup.Keep <= 0 {
		c.Backup.Keep = defaultBackupKeep
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
