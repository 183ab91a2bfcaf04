package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func DirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// RemoveTree deletes path recursively. A missing path is not an error.
func RemoveTree(path string) error {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
