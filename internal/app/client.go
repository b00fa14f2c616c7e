package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	intrnl "nexuschat/internal"
	"nexuschat/internal/storage"
)

const migrateTimeout = 5 * time.Second

// RunClient opens the local cache and launches the Bubble Tea TUI. A broken
// cache is not fatal: the client runs without offline state.
func RunClient(cfg ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("server URL is required")
	}
	serverURL := NormalizeServerURL(cfg.ServerURL)
	socketURL := cfg.SocketURL
	if socketURL == "" {
		socketURL = DeriveSocketURL(cfg.ServerURL)
	}
	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		downloadDir = DefaultDownloadDir()
	}

	cache := openCache(cfg.CachePath)
	if cache != nil {
		defer cache.Close()
	}

	return intrnl.RunClient(serverURL, socketURL, downloadDir, cfg.Email, cache)
}

func openCache(path string) *storage.Cache {
	if path == "" {
		path = DefaultCachePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		log.Printf("cache: create data dir: %v", err)
		return nil
	}
	cache, err := storage.Open(path)
	if err != nil {
		log.Printf("cache: open %s: %v", path, err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := cache.Migrate(ctx); err != nil {
		log.Printf("cache: migrate: %v", fmt.Errorf("%s: %w", path, err))
		_ = cache.Close()
		return nil
	}
	return cache
}
