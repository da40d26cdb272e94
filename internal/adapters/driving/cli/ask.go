package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the passages most similar to the question and asks the
configured LLM to answer from them. When nothing relevant is found the
LLM answers without document context and the output says so.

Questions must be between 3 and 500 characters.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireRAG(commandContext(cmd)); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if err := ensureInitialized(ctx); err != nil {
		return err
	}

	answer, err := ragService.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Print(renderAnswer(answer))
	return nil
}
