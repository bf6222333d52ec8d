// Package config provides YAML-based configuration loading for fatebot.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Chat platforms.
const (
	PlatformDiscord = "discord"
	PlatformSlack   = "slack"
)

// Config is the top-level fatebot configuration, loaded from fatebot.yaml.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Chat    ChatConfig    `yaml:"chat"`
	API     APIConfig     `yaml:"api"`
	Dice    DiceConfig    `yaml:"dice"`
}

// StorageConfig selects and configures the relational store.
type StorageConfig struct {
	Driver string       `yaml:"driver"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// MySQLConfig holds connection settings for a MySQL-compatible server.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SQLiteConfig holds the on-disk location of a SQLite database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ChatConfig configures the chat bridge.
type ChatConfig struct {
	Platform string        `yaml:"platform"`
	Prefix   string        `yaml:"prefix"`
	Discord  DiscordConfig `yaml:"discord"`
	Slack    SlackConfig   `yaml:"slack"`
	Roster   RosterConfig  `yaml:"roster"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken string `yaml:"app_token"`
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// RosterConfig schedules a periodic post listing a guild's characters.
// An empty Cron disables it.
type RosterConfig struct {
	Cron      string `yaml:"cron"` // 5-field expression or descriptor ("@daily", "@every 1h")
	GuildID   string `yaml:"guild_id"`
	ChannelID string `yaml:"channel_id"`
}

// APIConfig configures the HTTP import API. Port 0 disables it.
type APIConfig struct {
	Port int `yaml:"port"`
}

// DiceConfig holds dice roller limits.
type DiceConfig struct {
	MaxDice int `yaml:"max_dice"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file exists:
// a local SQLite database and no chat platform.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in default values and environment overrides.
func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.MySQL.Host == "" {
		c.Storage.MySQL.Host = "127.0.0.1"
	}
	if c.Storage.MySQL.Port == 0 {
		c.Storage.MySQL.Port = 3306
	}
	if c.Storage.MySQL.User == "" {
		c.Storage.MySQL.User = "root"
	}
	if c.Storage.MySQL.Database == "" {
		c.Storage.MySQL.Database = "fatebot"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "fatebot.db"
	}
	if c.Chat.Prefix == "" {
		c.Chat.Prefix = "!fate"
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Chat.Discord.BotToken = v
	}
	if v := os.Getenv("SLACK_APP_TOKEN"); v != "" {
		c.Chat.Slack.AppToken = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Chat.Slack.BotToken = v
	}
	if c.Dice.MaxDice == 0 {
		c.Dice.MaxDice = 50
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Storage.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("storage.driver %q is not one of mysql, sqlite", c.Storage.Driver))
	}
	switch c.Chat.Platform {
	case "":
	case PlatformDiscord:
		if c.Chat.Discord.BotToken == "" {
			errs = append(errs, "chat.discord.bot_token is required (or set DISCORD_TOKEN)")
		}
	case PlatformSlack:
		if c.Chat.Slack.AppToken == "" {
			errs = append(errs, "chat.slack.app_token is required")
		}
		if c.Chat.Slack.BotToken == "" {
			errs = append(errs, "chat.slack.bot_token is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("chat.platform %q is not one of discord, slack", c.Chat.Platform))
	}
	if strings.ContainsAny(c.Chat.Prefix, " \t\n") {
		errs = append(errs, "chat.prefix must not contain whitespace")
	}
	if r := c.Chat.Roster; r.Cron != "" {
		if _, err := cron.ParseStandard(r.Cron); err != nil {
			errs = append(errs, fmt.Sprintf("chat.roster.cron %q: %v", r.Cron, err))
		}
		if r.GuildID == "" {
			errs = append(errs, "chat.roster.guild_id is required when chat.roster.cron is set")
		}
		if r.ChannelID == "" {
			errs = append(errs, "chat.roster.channel_id is required when chat.roster.cron is set")
		}
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d out of range", c.API.Port))
	}
	if c.Dice.MaxDice < 1 || c.Dice.MaxDice > 120 {
		errs = append(errs, fmt.Sprintf("dice.max_dice %d must be between 1 and 120", c.Dice.MaxDice))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
