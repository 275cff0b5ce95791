package code_mapper

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/openclaw/clawtographer/code_mapper/models"
	"github.com/openclaw/clawtographer/token_management/contracts"
	"github.com/openclaw/clawtographer/utils"
)

// Scanner walks a codebase and produces token-counted items.
type Scanner struct {
	counter contracts.ITokenManagement
	logger  *zap.Logger
}

// NewScanner initializes a Scanner.
func NewScanner(counter contracts.ITokenManagement, logger *zap.Logger) *Scanner {
	return &Scanner{counter: counter, logger: logger}
}

// Scan walks rootDir and returns one item per readable, non-ignored file.
// Unreadable files are counted as skipped, not fatal.
func (s *Scanner) Scan(rootDir string, ignorePatterns []string) ([]models.Item, models.ScanSummary, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, models.ScanSummary{}, fmt.Errorf("codebase path does not exist: %s", rootDir)
	}
	if !info.IsDir() {
		return nil, models.ScanSummary{}, fmt.Errorf("codebase path is not a directory: %s", rootDir)
	}

	var items []models.Item
	var summary models.ScanSummary

	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("error accessing path during scan", zap.String("path", path), zap.Error(err))
			summary.Skipped++
			return nil
		}

		relativePath, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			relativePath = path
		}
		relativePath = strings.ReplaceAll(relativePath, "\\", "/")

		if utils.ShouldIgnore(path, ignorePatterns) || utils.ShouldIgnore(relativePath, ignorePatterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			summary.Skipped++
			return nil
		}

		if d.IsDir() {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			s.logger.Warn("skipped unreadable file", zap.String("path", relativePath), zap.Error(readErr))
			summary.Skipped++
			return nil
		}

		text := string(content)
		tokens := s.counter.CountTokens(text)

		items = append(items, models.Item{
			RelativePath: relativePath,
			Tokens:       tokens,
			Content:      text,
			Fingerprint:  xxh3.HashString(text),
		})
		summary.Files++
		summary.TotalTokens += tokens

		return nil
	})

	if err != nil {
		return nil, summary, fmt.Errorf("failed to scan codebase: %w", err)
	}

	s.logger.Info("scan complete",
		zap.Int("files", summary.Files),
		zap.Int("totalTokens", summary.TotalTokens),
		zap.Int("skipped", summary.Skipped))

	return items, summary, nil
}
