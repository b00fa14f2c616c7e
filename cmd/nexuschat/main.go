package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"nexuschat/internal/app"
)

func main() {
	flagSet := flag.NewFlagSet("nexuschat", flag.ExitOnError)
	server := flagSet.String("server", envOrDefault("NEXUSCHAT_SERVER", "http://localhost:3001"), "backend base URL")
	socketURL := flagSet.String("socket-url", envOrDefault("NEXUSCHAT_SOCKET", ""), "websocket URL (defaults to the server URL with a ws scheme)")
	email := flagSet.String("email", envOrDefault("NEXUSCHAT_EMAIL", ""), "default email for the login prompt")
	downloadDir := flagSet.String("download-dir", envOrDefault("NEXUSCHAT_DOWNLOAD_DIR", ""), "directory for downloaded attachments")
	db := flagSet.String("db", envOrDefault("NEXUSCHAT_DB_PATH", ""), "sqlite cache path (defaults to a per-user path)")
	quiet := flagSet.Bool("quiet", false, "suppress informational logs")
	flagSet.Parse(os.Args[1:])

	if *quiet {
		log.SetOutput(io.Discard)
	}

	cfg := app.ClientConfig{
		ServerURL:   *server,
		SocketURL:   *socketURL,
		Email:       *email,
		DownloadDir: *downloadDir,
		CachePath:   *db,
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "nexuschat: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
