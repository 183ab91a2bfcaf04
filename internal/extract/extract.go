// Package extract converts uploaded files of many formats into plain text.
//
// Extraction never fails: files that cannot be decoded produce one of the
// tagged placeholders below so a single bad input cannot abort a job.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quizforge/internal/util"
)

const (
	TagUnsupported = "[unsupported]"
	TagMissing     = "[missing]"
	TagError       = "[error]"
	TagSkip        = "[skip]"

	DefaultMaxTextBytes = 10 << 20
	DefaultWorkers      = 4
)

type Options struct {
	OCR           bool
	TesseractPath string
	// MaxTextBytes bounds the plain-text fallback for unknown extensions.
	MaxTextBytes int64
	Workers      int
	Logger       *slog.Logger
}

type Extractor struct {
	reg          *Registry
	maxTextBytes int64
	workers      int
	log          *slog.Logger
}

func New(opts Options) *Extractor {
	return NewWithRegistry(DefaultRegistry(opts), opts)
}

func NewWithRegistry(reg *Registry, opts Options) *Extractor {
	if opts.MaxTextBytes <= 0 {
		opts.MaxTextBytes = DefaultMaxTextBytes
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Extractor{reg: reg, maxTextBytes: opts.MaxTextBytes, workers: opts.Workers, log: opts.Logger}
}

func (e *Extractor) Registry() *Registry { return e.reg }

// Extract returns the text of a single file or a placeholder describing why
// there is none.
func (e *Extractor) Extract(ctx context.Context, path string) (text string) {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("decoder panicked", "file", name, "panic", r)
			text = placeholder(TagError, "decoding %s: %v", name, r)
		}
	}()

	reg, ok := e.reg.lookup(ext)
	if !ok {
		return e.fallback(ctx, path, name, ext)
	}
	if reg.missing != "" {
		e.log.Warn("decoder unavailable", "file", name, "family", reg.family, "reason", reg.missing)
		return placeholder(TagMissing, "%s for %s", reg.missing, name)
	}
	out, err := reg.decoder.Decode(ctx, path)
	if err != nil {
		e.log.Warn("extract failed", "file", name, "family", reg.family, "error", err)
		return placeholder(TagError, "reading %s %s: %v", reg.family, name, err)
	}
	e.log.Debug("extracted file", "file", name, "family", reg.family, "chars", len(out), "duration_ms", time.Since(start).Milliseconds())
	return util.SanitizeText(out)
}

// fallback handles extensions nobody registered: small files are read as
// text, then the mime type is consulted.
func (e *Extractor) fallback(ctx context.Context, path, name, ext string) string {
	if st, err := os.Stat(path); err == nil && st.Size() <= e.maxTextBytes {
		return e.readAsText(ctx, path, name)
	}
	if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "text/") {
		return e.readAsText(ctx, path, name)
	}
	return placeholder(TagUnsupported, "%s (.%s): no extractor available", name, strings.TrimPrefix(ext, "."))
}

func (e *Extractor) readAsText(ctx context.Context, path, name string) string {
	out, err := decodeText(ctx, path)
	if err != nil {
		return placeholder(TagError, "reading text file %s: %v", name, err)
	}
	return util.SanitizeText(out)
}

func placeholder(tag, format string, args ...any) string {
	return tag + " " + fmt.Sprintf(format, args...) + "\n"
}

// IsPlaceholder reports whether text is a placeholder produced by Extract.
func IsPlaceholder(text string) bool {
	for _, tag := range []string{TagUnsupported, TagMissing, TagError, TagSkip} {
		if strings.HasPrefix(text, tag+" ") {
			return true
		}
	}
	return false
}
