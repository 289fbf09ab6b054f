package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "DUEBOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "DUEBOT_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "store.backend", typ: kString, env: "DUEBOT_STORE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Store.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Backend },
	},
	{
		key: "store.notion_base_url", typ: kString, env: "DUEBOT_NOTION_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Store.NotionBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.NotionBaseURL },
	},
	{
		key: "store.notion_token", typ: kString, env: "DUEBOT_NOTION_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Store.NotionToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.NotionToken },
	},
	{
		key: "store.notion_database_id", typ: kString, env: "DUEBOT_NOTION_DATABASE_ID",
		apply:   func(cfg *Config, v any) { cfg.Store.NotionDatabaseID = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.NotionDatabaseID },
	},
	{
		key: "notify.discord_webhook_url", typ: kString, env: "DUEBOT_DISCORD_WEBHOOK_URL",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Notify.DiscordWebhookURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.DiscordWebhookURL },
	},
	{
		key: "calendar.base_url", typ: kString, env: "DUEBOT_CALENDAR_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Calendar.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Calendar.BaseURL },
	},
	{
		key: "calendar.token", typ: kString, env: "DUEBOT_CALENDAR_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Calendar.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Calendar.Token },
	},
	{
		key: "calendar.timezone", typ: kString, env: "DUEBOT_CALENDAR_TIMEZONE",
		apply:   func(cfg *Config, v any) { cfg.Calendar.Timezone = v.(string) },
		extract: func(cfg Config) any { return cfg.Calendar.Timezone },
	},
	{
		key: "storage.data_dir", typ: kString, env: "DUEBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "DUEBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
