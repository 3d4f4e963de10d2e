// Package config loads, normalizes, and validates kinobot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the environment variables used by
// earlier deployments (BOT_TOKEN, ADMIN_ID, CHANNEL1_ID, CHANNEL2_ID,
// CHANNEL2_LINK, BOT_USERNAME, MOVIES_FILE). The Config type centralizes every
// knob the daemon and CLI need.
//
// Validate covers what every command needs; ValidateDaemon adds the Telegram
// credentials and admin list required to run the bot.
package config
