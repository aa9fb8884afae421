package util

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const TempSuffix = ".tmp"

// WriteNew writes data to a fresh file at path or at path with a numeric
// suffix when path is taken. An existing file is never replaced. The data goes
// to a temp sibling first and is synced before it becomes visible under its
// final name. It returns the path actually written.
func WriteNew(path string, data []byte) (string, error) {
	tmp := path + TempSuffix

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	if _, err := out.Write(data); err != nil {
		closeQuiet(out)
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := out.Sync(); err != nil {
		closeQuiet(out)
		_ = os.Remove(tmp)
		return "", fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", tmp, err)
	}

	defer func() { _ = os.Remove(tmp) }()

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	for n := 1; n < 1000; n++ {
		dst := path
		if n > 1 {
			dst = stem + "_" + strconv.Itoa(n) + ext
		}

		err := os.Link(tmp, dst)
		if err == nil {
			return dst, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}

		// Hard links are not available everywhere. Fall back to a checked rename.
		if _, statErr := os.Stat(dst); statErr == nil {
			continue
		}
		if err := os.Rename(tmp, dst); err != nil {
			return "", fmt.Errorf("move %s: %w", dst, err)
		}
		return dst, nil
	}

	return "", fmt.Errorf("write: no free name for %s", path)
}

// CleanupTempFiles removes leftover temp files in dir and returns their names.
func CleanupTempFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), TempSuffix) {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if err := os.Remove(full); err != nil {
			log.Printf("error cleaning up %s: %v", full, err)
			continue
		}
		removed = append(removed, e.Name())
	}

	return removed
}

func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func closeQuiet(f *os.File) {
	if cerr := f.Close(); cerr != nil {
		log.Printf("error closing file %s: %v", f.Name(), cerr)
	}
}
