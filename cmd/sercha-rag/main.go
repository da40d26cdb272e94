// Command sercha-rag answers questions grounded in a local document corpus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/manifest"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/watcher"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Ignoring .env: %v", err)
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	manifestPath := os.Getenv(envManifest)
	if manifestPath == "" {
		manifestPath = settings.ManifestPath
	}
	if manifestPath == "" {
		manifestPath = manifest.DefaultFile
	}

	app := &application{settings: settingsService}
	defer app.Close()

	docWatcher := watcher.New()
	defer docWatcher.Close() //nolint:errcheck // best effort on exit

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Settings: settingsService,
		NewRAG: func(ctx context.Context) (driving.RAGService, error) {
			return app.Build(ctx)
		},
		Manifest:     manifest.NewLoader(),
		Watcher:      docWatcher,
		ManifestPath: manifestPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cli.ExecuteContext(ctx)
}
