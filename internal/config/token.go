package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// APIToken returns the bearer token protecting the management API. The
// DUEBOT_API_TOKEN environment variable wins; otherwise the token is read
// from (and on first run generated into) a file under the data dir, so the
// CLI and the server agree without any setup step.
func APIToken(dataDir string) (string, error) {
	if tok := os.Getenv("DUEBOT_API_TOKEN"); tok != "" {
		return tok, nil
	}

	path := filepath.Join(dataDir, "api_token")
	if data, err := os.ReadFile(path); err == nil {
		tok := strings.TrimSpace(string(data))
		if tok != "" {
			return tok, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading api token: %w", err)
	}

	tok := uuid.New().String()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(tok+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing api token: %w", err)
	}
	return tok, nil
}
