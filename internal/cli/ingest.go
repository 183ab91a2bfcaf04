package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizforge/internal/util"
)

var (
	ingestBase string

	queryTopK int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <docset> <path>...",
	Short: "Extract files and index their chunks under a docset",
	Long: `Extract every file under the given paths and index the chunks under
<docset>. Re-ingesting the same file rewrites its chunks in place.

Examples:
  quizctl ingest biology notes/
  quizctl ingest biology --base notes notes/cells.pdf`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <docset> <question>",
	Short: "Show the chunks most similar to a question",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuery,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestBase, "base", "", "record sources relative to this directory")
	queryCmd.Flags().IntVarP(&queryTopK, "top", "k", 5, "number of chunks to show")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ix, err := a.Collections.Index(args[0])
	if err != nil {
		return err
	}
	docs, err := a.Extractor.ExtractAll(ctx, args[1:], ingestBase)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no text extracted from files")
	}
	total := 0
	for _, d := range docs {
		n, err := ix.AddDocument(ctx, d.Source, d.Text)
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks from %d documents into %s\n", total, len(docs), ix.DocsetID())
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ix, err := a.Collections.Index(args[0])
	if err != nil {
		return err
	}
	hits, err := ix.Query(ctx, args[1], queryTopK)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintln(out, "No indexed chunks for this docset.")
		return nil
	}
	for i, h := range hits {
		fmt.Fprintf(out, "%d. %s #%d (score %.3f)\n   %s\n", i+1, h.Metadata.Source, h.Metadata.Chunk, h.Score, util.Snippet(h.Text, args[1], 240))
	}
	return nil
}
