package config

const (
	defaultConfigPath           = "~/.config/kinobot/config.toml"
	defaultDataDir              = "~/.local/share/kinobot"
	defaultDocument             = "movies.json"
	defaultSQLiteName           = "catalog.db"
	defaultStorageDriver        = "file"
	defaultLogDir               = "~/.local/share/kinobot/logs"
	defaultBackupDir            = "~/.local/share/kinobot/backups"
	defaultBackupSchedule       = "@daily"
	defaultBackupKeep           = 14
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultPollTimeout          = 30
	defaultRequestTimeout       = 10
	defaultWorkers              = 8
	defaultSendRate             = 25
	defaultAccessTimeoutSeconds = 5
	defaultTokensMaxUsers       = 100000
	defaultAPIBind              = "127.0.0.1:7490"
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Telegram: Telegram{
			PollTimeout:    defaultPollTimeout,
			RequestTimeout: defaultRequestTimeout,
			Workers:        defaultWorkers,
			SendRate:       defaultSendRate,
		},
		Access: Access{
			Enabled:        true,
			TimeoutSeconds: defaultAccessTimeoutSeconds,
		},
		Storage: Storage{
			Driver:   defaultStorageDriver,
			Dir:      defaultDataDir,
			Document: defaultDocument,
		},
		Tokens: Tokens{
			MaxUsers: defaultTokensMaxUsers,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Backup: Backup{
			Enabled:  true,
			Dir:      defaultBackupDir,
			Schedule: defaultBackupSchedule,
			Keep:     defaultBackupKeep,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			Dir:           defaultLogDir,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
