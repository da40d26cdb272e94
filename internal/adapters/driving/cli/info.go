package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var (
	infoJSON   bool
	resetForce bool
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show knowledge base status",
	Long: `Shows the embedding model, chunk and vector counts, indexed documents
and the active retrieval options.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the knowledge base",
	Long: `Removes every chunk, the document catalogue and the persisted snapshot.
The next 'sercha-rag init' rebuilds from the manifest.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output status as JSON")
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip confirmation")
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(resetCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	if err := requireRAG(commandContext(cmd)); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	// Restore only: no manifest sources, so nothing is ingested here.
	if err := ragService.Initialize(ctx, nil); err != nil {
		logger.Debug("No snapshot restored: %v", err)
	}

	info, err := ragService.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get info: %w", err)
	}

	if infoJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal info: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printInfo(cmd, info)
	return nil
}

func printInfo(cmd *cobra.Command, info *domain.SystemInfo) {
	kb := info.KnowledgeBase

	cmd.Println(styles.Title.Render("Knowledge Base"))
	status := styles.Warning.Render("empty")
	if kb.Ready {
		status = styles.Success.Render("ready")
	}
	cmd.Printf("  Status: %s\n", status)
	if kb.EmbeddingModel != "" {
		cmd.Printf("  Embedding model: %s\n", kb.EmbeddingModel)
	}
	cmd.Printf("  Chunks: %d\n", kb.TotalChunks)
	cmd.Printf("  Embeddings: %d\n", kb.TotalEmbeddings)
	cmd.Printf("  Dimension: %d\n", kb.Dimension)
	cmd.Printf("  Sources: %s\n", sourcesLine(kb.Sources))
	if !kb.SnapshotAt.IsZero() {
		cmd.Printf("  Snapshot: %s\n", kb.SnapshotAt.Local().Format("2006-01-02 15:04:05"))
	}
	cmd.Println()

	cmd.Println(styles.Title.Render("Documents"))
	if len(info.Documents) == 0 {
		cmd.Println("  (none)")
	}
	for _, d := range info.Documents {
		line := fmt.Sprintf("  %s: %d chunks", d.Source, d.ChunkCount)
		if d.Pages > 0 {
			line += fmt.Sprintf(", %d pages", d.Pages)
		}
		cmd.Println(line)
		if d.URI != "" && d.URI != d.Source {
			cmd.Printf("    %s\n", styles.Muted.Render(d.URI))
		}
	}
	cmd.Println()

	cmd.Println(styles.Title.Render("Retrieval"))
	values := info.Config.Values()
	for _, key := range domain.ConfigKeys() {
		cmd.Printf("  %s: %v\n", key, values[key])
	}
}

func runReset(cmd *cobra.Command, _ []string) error {
	if err := requireRAG(commandContext(cmd)); err != nil {
		return err
	}

	if !resetForce {
		cmd.Print("This deletes the knowledge base and its snapshot. Type 'yes' to continue: ")
		if readLine(bufio.NewReader(cmd.InOrStdin())) != "yes" {
			return errors.New("reset cancelled")
		}
	}

	if err := ragService.Reset(commandContext(cmd)); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println(styles.Success.Render("Knowledge base cleared."))
	return nil
}

// sourcesLine joins source names for compact output.
func sourcesLine(sources []string) string {
	if len(sources) == 0 {
		return "(none)"
	}
	return strings.Join(sources, ", ")
}
