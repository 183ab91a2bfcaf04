package extract

import (
	"context"
	"sort"
	"strings"
)

// Decoder turns one file into text. Errors are reported inline by the
// Extractor and never reach its callers.
type Decoder interface {
	Decode(ctx context.Context, path string) (string, error)
}

type DecoderFunc func(ctx context.Context, path string) (string, error)

func (f DecoderFunc) Decode(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

type registration struct {
	family  string
	decoder Decoder
	// missing is set when the decoder's runtime dependency is unavailable.
	missing string
}

// Registry maps lower-cased extensions (with the leading dot) to decoders.
type Registry struct {
	byExt map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{byExt: map[string]registration{}}
}

func (r *Registry) Register(family string, d Decoder, exts ...string) {
	for _, ext := range exts {
		r.byExt[normalizeExt(ext)] = registration{family: family, decoder: d}
	}
}

// RegisterMissing records a known format whose decoder cannot run here.
// Files of that format extract to a [missing] placeholder.
func (r *Registry) RegisterMissing(family, reason string, exts ...string) {
	for _, ext := range exts {
		r.byExt[normalizeExt(ext)] = registration{family: family, missing: reason}
	}
}

func (r *Registry) lookup(ext string) (registration, bool) {
	reg, ok := r.byExt[normalizeExt(ext)]
	return reg, ok
}

// Extensions lists every registered extension, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Missing reports the registered formats that are unavailable, keyed by family.
func (r *Registry) Missing() map[string]string {
	out := map[string]string{}
	for _, reg := range r.byExt {
		if reg.missing != "" {
			out[reg.family] = reg.missing
		}
	}
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

var (
	textExts = []string{
		".txt", ".md", ".rst", ".log", ".ini", ".cfg", ".conf", ".env",
		".py", ".ipynb", ".js", ".ts", ".tsx", ".jsx", ".java", ".kt", ".kts",
		".cs", ".vb", ".c", ".h", ".cpp", ".hpp", ".cc", ".hh", ".go", ".rs",
		".swift", ".m", ".mm", ".php", ".rb", ".pl", ".sh", ".bash", ".zsh",
		".fish", ".sql", ".scala", ".clj", ".edn", ".lua",
	}
	imageExts = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".gif", ".webp"}
)

// DefaultRegistry wires every built-in decoder. OCR is checked once: when it
// is enabled but tesseract is not installed, images map to [missing].
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	r.Register("text", DecoderFunc(decodeText), textExts...)
	r.Register("CSV", csvDecoder{comma: ','}, ".csv")
	r.Register("TSV", csvDecoder{comma: '\t'}, ".tsv")
	r.Register("XLSX", DecoderFunc(decodeXLSX), ".xlsx")
	r.Register("DOCX", DecoderFunc(decodeDOCX), ".docx")
	r.Register("PPTX", DecoderFunc(decodePPTX), ".pptx")
	r.Register("PDF", DecoderFunc(decodePDF), ".pdf")
	r.Register("JSON", DecoderFunc(decodeJSON), ".json")
	r.Register("YAML", DecoderFunc(decodeYAML), ".yaml", ".yml")
	r.Register("XML", DecoderFunc(decodeText), ".xml")

	switch {
	case !opts.OCR:
		r.Register("image", DecoderFunc(skipImage), imageExts...)
	default:
		if ocr, err := newOCRDecoder(opts.TesseractPath); err != nil {
			r.RegisterMissing("image", err.Error(), imageExts...)
		} else {
			r.Register("image", ocr, imageExts...)
		}
	}
	return r
}
