package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// readLossy reads a file as UTF-8, dropping invalid byte sequences.
func readLossy(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), ""), nil
}

func decodeText(_ context.Context, path string) (string, error) {
	return readLossy(path)
}

type csvDecoder struct {
	comma rune
}

// Decode emits one tab-joined line per record.
func (d csvDecoder) Decode(_ context.Context, path string) (string, error) {
	raw, err := readLossy(path)
	if err != nil {
		return "", err
	}
	r := csv.NewReader(strings.NewReader(raw))
	r.Comma = d.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var b strings.Builder
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		b.WriteString(strings.Join(rec, "\t"))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// decodeJSON re-indents the document, keeping key order.
func decodeJSON(_ context.Context, path string) (string, error) {
	raw, err := readLossy(path)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(raw), "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

// decodeYAML round-trips every document in the stream through yaml.v3 nodes.
func decodeYAML(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if err := enc.Encode(&node); err != nil {
			return "", fmt.Errorf("re-encode yaml: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return out.String(), nil
}

func skipImage(_ context.Context, path string) (string, error) {
	return placeholder(TagSkip, "%s: OCR disabled", filepath.Base(path)), nil
}
