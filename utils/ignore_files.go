package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ignoreFileCacheEntry holds parsed ignore patterns with the file's modtime.
type ignoreFileCacheEntry struct {
	patterns []string
	modTime  time.Time
}

var (
	ignoreFileCache = make(map[string]*ignoreFileCacheEntry)
	cacheMutex      sync.RWMutex
)

// GetIgnoreFilePatterns reads and returns the patterns from the
// .clawtographerignore file in dir. A missing file yields an empty pattern
// list. Parsed patterns are cached per path and invalidated on modtime change.
func GetIgnoreFilePatterns(dir string) ([]string, error) {
	ignorePath := filepath.Join(dir, ".clawtographerignore")

	fileInfo, err := os.Stat(ignorePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error checking .clawtographerignore: %w", err)
	}

	cacheMutex.RLock()
	if cached, exists := ignoreFileCache[ignorePath]; exists {
		if fileInfo.ModTime().Equal(cached.modTime) {
			cacheMutex.RUnlock()
			return cached.patterns, nil
		}
	}
	cacheMutex.RUnlock()

	patterns, err := readIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .clawtographerignore: %w", err)
	}

	// Patterns already covered by the built-in ignore set add nothing.
	var validPatterns []string
	for _, pattern := range patterns {
		if !IsDefaultIgnored(pattern) {
			validPatterns = append(validPatterns, pattern)
		}
	}

	cacheMutex.Lock()
	ignoreFileCache[ignorePath] = &ignoreFileCacheEntry{
		patterns: validPatterns,
		modTime:  fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return validPatterns, nil
}

// readIgnoreFile parses one pattern per line, skipping blanks and comments.
func readIgnoreFile(ignorePath string) ([]string, error) {
	content, err := os.ReadFile(ignorePath)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	var patterns []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// ClearIgnoreFileCache drops all cached ignore file patterns.
func ClearIgnoreFileCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreFileCache = make(map[string]*ignoreFileCacheEntry)
}
