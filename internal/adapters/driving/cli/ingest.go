package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/manifest"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	addName        string
	addType        string
	addPriority    int
	addDescription string
	addSave        bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Build the knowledge base",
	Long: `Builds the knowledge base from the document manifest.

When caching is enabled and a snapshot exists, the snapshot is restored
instead and no documents are re-embedded. Run 'sercha-rag reset' first
to force a full rebuild.

The manifest is a YAML file listing document sources:

  documents:
    - path: docs/handbook.pdf
      name: Handbook
      priority: 1
    - path: https://example.com/faq.html`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var addCmd = &cobra.Command{
	Use:   "add [path|url]...",
	Short: "Add documents to the knowledge base",
	Long: `Adds files, directories or URLs to the knowledge base without
re-embedding existing documents. Unchanged documents are skipped and
changed ones replace their previous chunks.

Supported types: pdf, docx, txt, md, html.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove [source]",
	Short: "Remove a document from the knowledge base",
	Long:  `Removes the chunks of one document, identified by its file path or URL as listed by 'sercha-rag info'.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "display name (single document only)")
	addCmd.Flags().StringVar(&addType, "type", "", "document type override (pdf, docx, txt, md, html)")
	addCmd.Flags().IntVar(&addPriority, "priority", 0, "ingestion priority, lowest first")
	addCmd.Flags().StringVar(&addDescription, "description", "", "description stored in the manifest")
	addCmd.Flags().BoolVar(&addSave, "save", false, "also record the documents in the manifest")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	if err := requireRAG(commandContext(cmd)); err != nil {
		return err
	}

	sources, err := manifestSources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		cmd.Println(styles.Muted.Render("No documents in manifest; restoring snapshot only."))
	}

	ctx := commandContext(cmd)
	if err := ragService.Initialize(ctx, sources); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	info, err := ragService.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get info: %w", err)
	}
	cmd.Printf("%s %d chunks from %d sources\n",
		styles.Success.Render("Knowledge base ready:"),
		info.KnowledgeBase.TotalChunks, len(info.KnowledgeBase.Sources))
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	if err := requireRAG(commandContext(cmd)); err != nil {
		return err
	}
	if addType != "" && !domain.DocumentType(addType).IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedType, addType)
	}

	sources, err := sourcesFromArgs(args, addName, domain.DocumentType(addType), addPriority)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no supported documents found")
	}
	for i := range sources {
		sources[i].Description = addDescription
	}

	added, err := ragService.AddDocuments(commandContext(cmd), sources)
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	if added == 0 {
		cmd.Println("No changes: documents are already up to date.")
	} else {
		cmd.Printf("%s %d chunks from %d sources\n", styles.Success.Render("Added"), added, len(sources))
	}

	if addSave {
		return saveToManifest(cmd, sources)
	}
	return nil
}

// saveToManifest merges sources into the manifest, replacing entries
// with the same path.
func saveToManifest(cmd *cobra.Command, sources []domain.DocumentSource) error {
	if manifestPath == "" {
		return errors.New("no manifest configured: pass --manifest")
	}
	existing, err := manifestSources()
	if err != nil {
		return err
	}

	index := make(map[string]int, len(existing))
	for i, s := range existing {
		index[s.Path] = i
	}
	for _, s := range sources {
		if i, ok := index[s.Path]; ok {
			existing[i] = s
			continue
		}
		index[s.Path] = len(existing)
		existing = append(existing, s)
	}

	if err := manifest.Save(manifestPath, existing); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	cmd.Printf("Manifest updated: %s\n", manifestPath)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := requireRAG(commandContext(cmd)); err != nil {
		return err
	}

	key, err := sourceKey(args[0])
	if err != nil {
		return err
	}
	removed, err := ragService.RemoveDocument(commandContext(cmd), key)
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	if removed == 0 {
		cmd.Printf("No chunks found for %q\n", args[0])
		return nil
	}
	cmd.Printf("Removed %d chunks for %q\n", removed, args[0])
	return nil
}

// sourceKey maps a command line path or URL to the key the knowledge
// base stores it under.
func sourceKey(arg string) (string, error) {
	src := domain.DocumentSource{Path: arg}
	if src.IsRemote() {
		return src.Identifier(), nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", arg, err)
	}
	src.Path = abs
	return src.Identifier(), nil
}
