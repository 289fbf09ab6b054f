package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Store    StoreConfig    `toml:"store"`
	Notify   NotifyConfig   `toml:"notify"`
	Calendar CalendarConfig `toml:"calendar"`
	Storage  StorageConfig  `toml:"storage"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Port    int `toml:"port"`
	MCPPort int `toml:"mcp_port"`
}

// StoreConfig selects where assignments live. Backend "sqlite" keeps
// everything in the local database; "notion" mirrors rows into a Notion
// database and reads snapshots back from it.
type StoreConfig struct {
	Backend          string `toml:"backend"`
	NotionBaseURL    string `toml:"notion_base_url"`
	NotionToken      string `toml:"-"`
	NotionDatabaseID string `toml:"notion_database_id"`
}

type NotifyConfig struct {
	DiscordWebhookURL string `toml:"-"`
}

type CalendarConfig struct {
	BaseURL  string `toml:"base_url"`
	Token    string `toml:"-"`
	Timezone string `toml:"timezone"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

const (
	BackendSQLite = "sqlite"
	BackendNotion = "notion"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4000,
			MCPPort: 4001,
		},
		Store: StoreConfig{
			Backend:       BackendSQLite,
			NotionBaseURL: "https://api.notion.com",
		},
		Calendar: CalendarConfig{
			Timezone: "UTC",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in three layers: built-in defaults, the TOML
// file at $XDG_CONFIG_HOME/duebot/config.toml, then DUEBOT_* environment
// variables. Secrets (Notion token, Discord webhook, calendar token) are
// never read from the file; set them via environment variables or a .env
// file in the working directory.
func Load() (Config, error) {
	return loadFromPath(configFilePath())
}

func loadFromPath(path string) (Config, error) {
	cfg := defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
	case BackendNotion:
		if c.Store.NotionToken == "" {
			return fmt.Errorf("store backend %q requires DUEBOT_NOTION_TOKEN", BackendNotion)
		}
		if c.Store.NotionDatabaseID == "" {
			return fmt.Errorf("store backend %q requires a Notion database id; set store.notion_database_id or DUEBOT_NOTION_DATABASE_ID", BackendNotion)
		}
	default:
		return fmt.Errorf("unknown store backend %q (valid: %s, %s)", c.Store.Backend, BackendSQLite, BackendNotion)
	}
	return nil
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "duebot", "config.toml")
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "duebot-data"
		}
	}
	return filepath.Join(dir, "duebot")
}
