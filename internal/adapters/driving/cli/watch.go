package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Keep the knowledge base in sync with a directory",
	Long: `Adds every supported document under the directory, then watches it
for changes. Created and modified files are re-ingested and deleted files
are removed from the knowledge base. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireRAG(commandContext(cmd)); err != nil {
		return err
	}
	if documentWatcher == nil {
		return errors.New("document watcher not configured")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources, err := sourcesFromArgs(args, "", "", 0)
	if err != nil {
		return err
	}
	if len(sources) > 0 {
		added, err := ragService.AddDocuments(ctx, sources)
		if err != nil {
			cmd.Printf("%s %v\n", styles.Warning.Render("Initial sync incomplete:"), err)
		} else {
			cmd.Printf("Initial sync: %d chunks added\n", added)
		}
	}

	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}
	changes, err := documentWatcher.Watch(ctx, root)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	defer documentWatcher.Close() //nolint:errcheck // best effort on exit

	cmd.Printf("Watching %s\n", root)
	for change := range changes {
		applyChange(ctx, cmd, change)
	}
	cmd.Println("Stopped watching.")
	return nil
}

// applyChange mirrors one file change into the knowledge base.
// Failures are reported and watching continues.
func applyChange(ctx context.Context, cmd *cobra.Command, change domain.DocumentChange) {
	src := domain.DocumentSource{Path: change.Path}

	switch change.Type {
	case domain.ChangeDeleted:
		removed, err := ragService.RemoveDocument(ctx, src.Identifier())
		if err != nil {
			cmd.Printf("%s %s: %v\n", styles.Error.Render("remove failed"), change.Path, err)
			return
		}
		cmd.Printf("- %s (%d chunks)\n", src.DisplayName(), removed)
	case domain.ChangeCreated, domain.ChangeUpdated:
		added, err := ragService.AddDocuments(ctx, []domain.DocumentSource{src})
		if err != nil {
			cmd.Printf("%s %s: %v\n", styles.Error.Render("add failed"), change.Path, err)
			return
		}
		if added > 0 {
			cmd.Printf("+ %s (%d chunks)\n", src.DisplayName(), added)
		}
	}
}
