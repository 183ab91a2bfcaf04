package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quizforge/internal/extract"
	"quizforge/internal/util"
)

var (
	extractOutput  string
	extractPerFile bool
	extractBase    string

	chunkSize    int
	chunkOverlap int
)

var extractCmd = &cobra.Command{
	Use:   "extract <path>...",
	Short: "Extract text from files and directories",
	Long: `Extract text from every file under the given paths.

By default the texts are concatenated under "===== FILE: name =====" headers.
With --per-file one JSON object per document is written instead.

Examples:
  quizctl extract notes/ slides.pptx
  quizctl extract --per-file --base notes notes/ -o docs.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Split one file's text into overlapping chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write output to file")
	extractCmd.Flags().BoolVar(&extractPerFile, "per-file", false, "emit one JSON line per document")
	extractCmd.Flags().StringVar(&extractBase, "base", "", "make --per-file sources relative to this directory")

	chunkCmd.Flags().IntVar(&chunkSize, "size", 0, "chunk size in characters (default QUIZFORGE_CHUNK_SIZE)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", -1, "chunk overlap in characters (default QUIZFORGE_CHUNK_OVERLAP)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ex := newExtractor()
	out := cmd.OutOrStdout()

	if !extractPerFile {
		blob, err := ex.ExtractBlob(ctx, args)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		if extractOutput != "" {
			return util.WriteTextAtomic(extractOutput, blob)
		}
		_, err = fmt.Fprintln(out, blob)
		return err
	}

	docs, err := ex.ExtractAll(ctx, args, extractBase)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if extractOutput != "" {
		if err := util.WriteJSONLinesAtomic(extractOutput, docs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d documents to %s\n", len(docs), extractOutput)
		return nil
	}
	enc := json.NewEncoder(out)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return nil
}

type chunkLine struct {
	Chunk int    `json:"chunk"`
	Text  string `json:"text"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return err
	}
	size, overlap := chunkSize, chunkOverlap
	if size <= 0 {
		size = cfg.ChunkSize
	}
	if overlap < 0 {
		overlap = cfg.ChunkOverlap
	}
	text := newExtractor().Extract(cmd.Context(), args[0])
	if extract.IsPlaceholder(text) {
		fmt.Fprint(cmd.ErrOrStderr(), text)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for i, c := range util.ChunkText(text, size, overlap) {
		if err := enc.Encode(chunkLine{Chunk: i, Text: c}); err != nil {
			return err
		}
	}
	return nil
}
