// Package ingest discovers order PDFs on disk, either by a one-shot
// directory scan or by watching for new files.
package ingest

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gilerojas/orden-compra-app/constants"
)

// Stats summarizes one directory scan.
type Stats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// ScanDirectory walks root and returns the order PDFs found, skipping
// hidden files and directories when requested. Unreadable entries are
// counted as failures and the walk continues.
func ScanDirectory(root string, skipHidden bool) ([]string, Stats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, Stats{}, errors.New("root path is required")
	}

	var paths []string
	var stats Stats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil // keep walking
		}
		if skipHidden && IsHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, err
	}
	return paths, stats, nil
}

// AllowedExt reports whether the extension names a processable order
// document.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
