package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "")

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 4001 {
		t.Errorf("Server.MCPPort = %d, want 4001", cfg.Server.MCPPort)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendSQLite)
	}
	if cfg.Store.NotionBaseURL != "https://api.notion.com" {
		t.Errorf("Store.NotionBaseURL = %q", cfg.Store.NotionBaseURL)
	}
	if cfg.Calendar.Timezone != "UTC" {
		t.Errorf("Calendar.Timezone = %q, want UTC", cfg.Calendar.Timezone)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `[server]
port = 9000

[calendar]
base_url = "https://cal.example.com"
timezone = "America/Chicago"

[log]
level = "debug"
`)

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 4001 {
		t.Errorf("Server.MCPPort = %d, want default 4001", cfg.Server.MCPPort)
	}
	if cfg.Calendar.BaseURL != "https://cal.example.com" {
		t.Errorf("Calendar.BaseURL = %q", cfg.Calendar.BaseURL)
	}
	if cfg.Calendar.Timezone != "America/Chicago" {
		t.Errorf("Calendar.Timezone = %q", cfg.Calendar.Timezone)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `[server]
port = 9000
`)
	t.Setenv("DUEBOT_SERVER_PORT", "9100")
	t.Setenv("DUEBOT_LOG_LEVEL", "warn")

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestSecretsNotReadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `[store]
notion_token = "file-token"
notion_database_id = "db123"
`)

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.NotionToken != "" {
		t.Errorf("NotionToken = %q, want empty (secrets are env-only)", cfg.Store.NotionToken)
	}
	if cfg.Store.NotionDatabaseID != "db123" {
		t.Errorf("NotionDatabaseID = %q, want db123", cfg.Store.NotionDatabaseID)
	}
}

func TestNotionBackendRequiresCredentials(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `[store]
backend = "notion"
notion_database_id = "db123"
`)

	if _, err := loadFromPath(path); err == nil {
		t.Fatal("expected error without DUEBOT_NOTION_TOKEN")
	}

	t.Setenv("DUEBOT_NOTION_TOKEN", "secret")
	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error with token set: %v", err)
	}
	if cfg.Store.NotionToken != "secret" {
		t.Errorf("NotionToken = %q", cfg.Store.NotionToken)
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `[store]
backend = "postgres"
`)
	_, err := loadFromPath(path)
	if err == nil || !strings.Contains(err.Error(), "unknown store backend") {
		t.Fatalf("err = %v, want unknown store backend", err)
	}
}

func TestSetKeyRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := setKeyAt(path, "server.port", "9200"); err != nil {
		t.Fatalf("setKeyAt: %v", err)
	}
	if err := setKeyAt(path, "calendar.timezone", "Europe/Berlin"); err != nil {
		t.Fatalf("setKeyAt: %v", err)
	}

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("loadFromPath: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Server.Port = %d, want 9200", cfg.Server.Port)
	}
	if cfg.Calendar.Timezone != "Europe/Berlin" {
		t.Errorf("Calendar.Timezone = %q, want Europe/Berlin", cfg.Calendar.Timezone)
	}
}

func TestSetKeyPreservesExistingKeys(t *testing.T) {
	path := writeTempConfig(t, `[server]
port = 9000
mcp_port = 9001
`)
	if err := setKeyAt(path, "server.port", "9500"); err != nil {
		t.Fatalf("setKeyAt: %v", err)
	}

	var doc map[string]map[string]any
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		t.Fatalf("decoding rewritten file: %v", err)
	}
	if got := doc["server"]["mcp_port"]; got != int64(9001) {
		t.Errorf("mcp_port = %v (%T), want 9001", got, got)
	}
}

func TestSetKeyRejectsSecretsAndUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := setKeyAt(path, "store.notion_token", "x"); err == nil {
		t.Error("expected error setting a secret key")
	}
	if err := setKeyAt(path, "nonsense.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestValidKeysExcludesSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if strings.Contains(k, "token") || strings.Contains(k, "webhook") {
			t.Errorf("secret key %q exposed via ValidKeys", k)
		}
	}
	infos := ShowAll(defaults())
	if len(infos) != len(ValidKeys()) {
		t.Errorf("ShowAll returned %d keys, ValidKeys %d", len(infos), len(ValidKeys()))
	}
}
