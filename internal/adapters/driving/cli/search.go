package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// snippetLength bounds the chunk text shown per result.
const snippetLength = 160

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Ranks document passages by semantic similarity to the query
without generating an answer. Results below the similarity threshold are
only shown, marked as fallback, when nothing passes it.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireRAG(commandContext(cmd)); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if err := ensureInitialized(ctx); err != nil {
		return err
	}

	results, err := ragService.Search(ctx, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if results == nil {
		results = []domain.RetrievalResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(styles.Title.Render("Results:"))
	cmd.Println()
	for i := range results {
		r := &results[i]
		// Format: [N] Source (similarity)
		line := fmt.Sprintf("  [%d] %s (%.2f)", i+1, r.Chunk.Source, r.Similarity)
		if r.Fallback {
			line += " " + styles.Warning.Render("fallback")
		}
		cmd.Println(line)
		cmd.Printf("      %s\n", styles.Muted.Render(snippet(r.Chunk.Text, snippetLength)))
		cmd.Println()
	}
	return nil
}

// snippet flattens whitespace and truncates text to n runes.
func snippet(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n]) + "..."
}
