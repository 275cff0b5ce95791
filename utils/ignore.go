package utils

import "strings"

// defaultIgnorePatterns are always excluded regardless of configuration, so a
// run never feeds its own cache or output back into the scanner.
var defaultIgnorePatterns = []string{
	".git",
	".svn",
	".idea",
	".vscode",
	"node_modules",
	"__pycache__",
	".clawtographer_cache",
	".clawtographerignore",
	"clawtographer-config.yml",
	"clawtographer-config.yaml",
	"clawtographer-config.json",
}

// ShouldIgnore reports whether a path matches any configured or default ignore
// pattern. Matching is plain substring containment against the path string.
func ShouldIgnore(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(path, pattern) {
			return true
		}
	}
	return IsDefaultIgnored(path)
}

// IsDefaultIgnored checks a path against the built-in ignore set only.
func IsDefaultIgnored(path string) bool {
	for _, pattern := range defaultIgnorePatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}
