package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// ExcludeDirs is a list of directory names pruned wherever they appear
	ExcludeDirs []string
	// ExcludePaths is a list of paths pruned exactly. A directory is pruned
	// with everything below it; any other entry is left out of both Files
	// and Skipped.
	ExcludePaths []string
	// SkipHidden prunes directories whose name starts with "."
	SkipHidden bool
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the absolute paths of all regular files found, sorted
	Files []string
	// Skipped contains entries that are neither directories nor regular files
	// (symlinks, devices, sockets, pipes)
	Skipped []string
}

// ScanDirectory walks dir and collects every regular file beneath it.
//
// Symlinks are reported in Skipped and never followed, so link cycles cannot
// occur. Any error while walking aborts the scan; no partial result is
// returned.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory %s: %w", dir, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	result := &ScanResult{
		Files:   make([]string, 0),
		Skipped: make([]string, 0),
	}

	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	excludePathMap := make(map[string]bool)
	for _, p := range opts.ExcludePaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve excluded path %s: %w", p, err)
		}
		excludePathMap[filepath.Clean(abs)] = true
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", path, err)
		}

		if path == root {
			return nil
		}

		if d.IsDir() {
			if excludeMap[d.Name()] || excludePathMap[path] {
				return filepath.SkipDir
			}
			if opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if excludePathMap[path] {
			return nil
		}

		if !d.Type().IsRegular() {
			result.Skipped = append(result.Skipped, path)
			return nil
		}

		result.Files = append(result.Files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	sort.Strings(result.Skipped)

	return result, nil
}
