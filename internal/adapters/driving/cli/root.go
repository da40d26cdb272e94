// Package cli provides the cobra command tree for sercha-rag.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

var (
	verbose      bool
	manifestPath string
)

// Services injected by SetServices.
var (
	ragService      driving.RAGService
	settingsService driving.SettingsService
	manifestLoader  driven.ManifestLoader
	documentWatcher driven.DocumentWatcher

	// ragFactory builds ragService on first use.
	ragFactory func(ctx context.Context) (driving.RAGService, error)
)

// Services holds the dependencies the commands run against.
// Any field may be nil; commands that need a missing service fail with
// a "not configured" error.
type Services struct {
	RAG driving.RAGService

	// NewRAG builds the RAG service when a command first needs it, so that
	// settings and version work before the AI providers are reachable.
	// Ignored when RAG is set.
	NewRAG func(ctx context.Context) (driving.RAGService, error)

	Settings driving.SettingsService
	Manifest driven.ManifestLoader
	Watcher  driven.DocumentWatcher

	// ManifestPath is the default corpus manifest, overridable with --manifest.
	ManifestPath string
}

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Ask questions about your documents",
	Long: `sercha-rag builds a local knowledge base from PDF, DOCX, text, Markdown
and HTML documents and answers questions grounded in their content.

Configure the AI providers first:
  sercha-rag settings embedding
  sercha-rag settings llm

Then build the knowledge base and ask away:
  sercha-rag init
  sercha-rag ask "What is the refund policy?"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if verbose {
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress and diagnostics")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "document manifest (YAML)")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	ragService = s.RAG
	ragFactory = s.NewRAG
	settingsService = s.Settings
	manifestLoader = s.Manifest
	documentWatcher = s.Watcher
	if manifestPath == "" {
		manifestPath = s.ManifestPath
	}
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context that commands
// observe for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// requireRAG ensures ragService is available, building it if needed.
func requireRAG(ctx context.Context) error {
	if ragService != nil {
		return nil
	}
	if ragFactory == nil {
		return errors.New("rag service not configured: run 'sercha-rag settings' to set up the AI providers")
	}
	svc, err := ragFactory(ctx)
	if err != nil {
		return fmt.Errorf("rag service not configured: %w", err)
	}
	ragService = svc
	return nil
}

// manifestSources loads the manifest when one is configured and exists.
// A missing default manifest yields no sources.
func manifestSources() ([]domain.DocumentSource, error) {
	if manifestPath == "" || manifestLoader == nil {
		return nil, nil
	}
	sources, err := manifestLoader.Load(manifestPath)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("No manifest at %s", manifestPath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	return sources, nil
}

// ensureInitialized restores the knowledge base or builds it from the
// manifest so that queries can run in a fresh process.
func ensureInitialized(ctx context.Context) error {
	sources, err := manifestSources()
	if err != nil {
		return err
	}
	if err := ragService.Initialize(ctx, sources); err != nil {
		if errors.Is(err, domain.ErrEmptyInput) && len(sources) == 0 {
			return errors.New("knowledge base is empty: run 'sercha-rag add <path>' or 'sercha-rag init'")
		}
		return err
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// sourcesFromArgs turns command line paths into document sources.
// Directories are walked for supported files; hidden entries are skipped.
// Local paths are made absolute so catalogue keys are stable across
// working directories.
func sourcesFromArgs(args []string, name string, docType domain.DocumentType, priority int) ([]domain.DocumentSource, error) {
	var sources []domain.DocumentSource
	for _, arg := range args {
		src := domain.DocumentSource{Path: arg, Type: docType, Priority: priority}
		if src.IsRemote() {
			sources = append(sources, src)
			continue
		}

		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, arg)
		}
		if info.IsDir() {
			found, err := walkSources(abs, priority)
			if err != nil {
				return nil, err
			}
			sources = append(sources, found...)
			continue
		}

		src.Path = abs
		if !src.ResolvedType().IsValid() {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, arg)
		}
		sources = append(sources, src)
	}

	if len(sources) == 1 && name != "" {
		sources[0].Name = name
	}
	return sources, nil
}

func walkSources(root string, priority int) ([]domain.DocumentSource, error) {
	var sources []domain.DocumentSource
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !domain.DocumentTypeFromPath(path).IsValid() {
			return nil
		}
		sources = append(sources, domain.DocumentSource{Path: path, Priority: priority})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return sources, nil
}
