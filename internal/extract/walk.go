package extract

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Document is the text of one input file. Source is relative to the walk's
// base directory when one is given.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Collect expands directories recursively and de-duplicates by resolved
// absolute path, keeping first-seen order. Paths that do not exist are skipped.
func Collect(paths []string) []string {
	var files []string
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !st.IsDir() {
			if st.Mode().IsRegular() {
				files = append(files, p)
			}
			continue
		}
		var nested []string
		_ = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.Type().IsRegular() {
				nested = append(nested, path)
			}
			return nil
		})
		sort.Strings(nested)
		files = append(files, nested...)
	}

	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		abs := resolve(f)
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

func resolve(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// ExtractAll extracts every collected file and returns one document per file
// in collection order, omitting files whose text is blank.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string, baseDir string) ([]Document, error) {
	files := Collect(paths)
	texts, err := e.extractFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	base := ""
	if baseDir != "" {
		base = resolve(baseDir)
	}
	docs := make([]Document, 0, len(files))
	for i, f := range files {
		if strings.TrimSpace(texts[i]) == "" {
			continue
		}
		docs = append(docs, Document{Source: relativeTo(base, f), Text: texts[i]})
	}
	return docs, nil
}

// ExtractBlob concatenates every collected file under a
// "===== FILE: name =====" header.
func (e *Extractor) ExtractBlob(ctx context.Context, paths []string) (string, error) {
	files := Collect(paths)
	texts, err := e.extractFiles(ctx, files)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, f := range files {
		b.WriteString("\n\n===== FILE: " + filepath.Base(f) + " =====\n")
		b.WriteString(texts[i])
	}
	return b.String(), nil
}

// extractFiles runs Extract over a bounded worker pool. Only context
// cancellation is reported as an error.
func (e *Extractor) extractFiles(ctx context.Context, files []string) ([]string, error) {
	texts := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts[i] = e.Extract(gctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

func relativeTo(base, path string) string {
	if base == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
