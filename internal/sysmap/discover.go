package sysmap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMapDirs are checked in order when no maps directory is
// configured; the first one that exists wins.
var DefaultMapDirs = []string{"system-maps", "docs/system-maps", ".system-maps"}

// mapExtensions are the document formats the loader understands.
var mapExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// FindMapsDir locates the maps directory under root, returning the first
// default location that exists.
func FindMapsDir(root string) (string, error) {
	for _, candidate := range DefaultMapDirs {
		dir := filepath.Join(root, candidate)
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no system map directory found under %s (looked for %s)",
		root, strings.Join(DefaultMapDirs, ", "))
}

// Discover returns every map document under dir, recursively, in sorted
// order. Hidden directories are not descended into.
func Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("discover system maps: %w", err)
	}
	if !info.IsDir() {
		if mapExtensions[strings.ToLower(filepath.Ext(dir))] {
			return []string{dir}, nil
		}
		return nil, fmt.Errorf("discover system maps: %s is not a directory or map document", dir)
	}

	var paths []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if info.IsDir() {
			name := info.Name()
			if strings.HasPrefix(name, ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if mapExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover system maps: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}
