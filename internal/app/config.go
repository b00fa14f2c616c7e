package app

import (
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL   string
	SocketURL   string
	Email       string
	DownloadDir string
	CachePath   string
}

// DefaultCachePath returns a per-user data path for the local SQLite cache.
func DefaultCachePath() string {
	if env := os.Getenv("NEXUSCHAT_DB_PATH"); env != "" {
		return env
	}
	if env := os.Getenv("NEXUSCHAT_DATA_DIR"); env != "" {
		return filepath.Join(env, "nexuschat.db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "nexuschat", "nexuschat.db")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "NexusChat", "nexuschat.db")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "NexusChat", "nexuschat.db")
		}
		return filepath.Join(home, ".local", "share", "nexuschat", "nexuschat.db")
	}
	return filepath.Join(".", ".nexuschat", "nexuschat.db")
}

// DefaultDownloadDir returns where downloaded attachments land when no
// directory is configured.
func DefaultDownloadDir() string {
	if env := os.Getenv("NEXUSCHAT_DOWNLOAD_DIR"); env != "" {
		return env
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Downloads", "nexuschat")
	}
	return filepath.Join(".", "downloads")
}

// DeriveSocketURL turns the HTTP API base URL into the matching websocket
// endpoint when no explicit socket URL was given.
func DeriveSocketURL(serverURL string) string {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return serverURL
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// NormalizeServerURL guarantees the API base ends with the versioned prefix
// and carries no trailing slash.
func NormalizeServerURL(serverURL string) string {
	trimmed := strings.TrimRight(serverURL, "/")
	if strings.HasSuffix(trimmed, "/api/v1") {
		return trimmed
	}
	return trimmed + "/api/v1"
}
