package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ocrDecoder shells out to the tesseract CLI.
type ocrDecoder struct {
	bin string
}

func newOCRDecoder(bin string) (*ocrDecoder, error) {
	if strings.TrimSpace(bin) == "" {
		bin = "tesseract"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%s not found on PATH", bin)
	}
	return &ocrDecoder{bin: resolved}, nil
}

func (d *ocrDecoder) Decode(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.bin, path, "stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("OCR: %w: %s", err, msg)
		}
		return "", fmt.Errorf("OCR: %w", err)
	}
	return stdout.String(), nil
}
