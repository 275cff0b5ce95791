package code_mapper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/clawtographer/code_mapper/models"
)

// ErrNothingToAnalyze is returned when the scan finds no files.
var ErrNothingToAnalyze = errors.New("no files found to analyze")

// ErrAllChunksFailed is returned when every chunk analysis failed; no document
// is written and the cache is left untouched for retry.
var ErrAllChunksFailed = errors.New("all chunks failed - cannot create map")

// MapFileName is the fixed name of the final document.
const MapFileName = "CODEBASE_MAP.md"

// timestampFileName records when the last successful run finished.
const timestampFileName = ".clawtographer_timestamp"

// CodeMapper sequences the full pipeline: scan, chunk, dispatch, synthesize,
// persist, and cache reconciliation.
type CodeMapper struct {
	scanner     *Scanner
	cache       *ChunkCache
	dispatcher  *Dispatcher
	synthesizer *Synthesizer
	logger      *zap.Logger

	chunkBudget    int
	ignorePatterns []string
	outputDir      string
}

// RunReport summarizes a completed run.
type RunReport struct {
	OutputPath  string
	Scan        models.ScanSummary
	Chunks      int
	FromCache   int
	Failed      []int
	Synthesized bool
}

// NewCodeMapper initializes a CodeMapper.
func NewCodeMapper(scanner *Scanner, cache *ChunkCache, dispatcher *Dispatcher, synthesizer *Synthesizer, chunkBudget int, ignorePatterns []string, outputDir string, logger *zap.Logger) *CodeMapper {
	return &CodeMapper{
		scanner:        scanner,
		cache:          cache,
		dispatcher:     dispatcher,
		synthesizer:    synthesizer,
		logger:         logger,
		chunkBudget:    chunkBudget,
		ignorePatterns: ignorePatterns,
		outputDir:      outputDir,
	}
}

// Run executes the pipeline against rootDir and returns a report. Per-chunk
// failures are tolerated; the run only fails when nothing was scanned or no
// chunk succeeded.
func (m *CodeMapper) Run(ctx context.Context, rootDir string) (*RunReport, error) {
	items, summary, err := m.scanner.Scan(rootDir, m.ignorePatterns)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNothingToAnalyze
	}

	chunks := BuildChunks(items, m.chunkBudget, m.logger)

	results := m.dispatcher.Dispatch(ctx, chunks)

	var succeeded, failed []int
	fromCache := 0
	for _, result := range results {
		if result.Failed() {
			failed = append(failed, result.ChunkID)
		} else {
			succeeded = append(succeeded, result.ChunkID)
		}
		if result.FromCache {
			fromCache++
		}
	}

	if len(failed) > 0 {
		m.logger.Warn("some chunks had errors, kept in cache queue for retry",
			zap.Ints("failedChunkIDs", failed))
	}
	if len(succeeded) == 0 {
		return nil, ErrAllChunksFailed
	}

	document := m.synthesizer.Synthesize(ctx, results, rootDir)

	outputPath, err := m.persist(document)
	if err != nil {
		return nil, err
	}

	// Succeeded chunks are done for good; failed ones never got a cache entry,
	// so the next run recomputes exactly those.
	for _, chunkID := range succeeded {
		if err := m.cache.Delete(chunkID); err != nil {
			m.logger.Warn("failed to evict cache entry", zap.Int("chunkID", chunkID), zap.Error(err))
		}
	}
	if len(failed) > 0 {
		m.logger.Info("re-run to retry failed chunks", zap.Int("retained", len(failed)))
	}

	return &RunReport{
		OutputPath:  outputPath,
		Scan:        summary,
		Chunks:      len(chunks),
		FromCache:   fromCache,
		Failed:      failed,
		Synthesized: document.Synthesized,
	}, nil
}

// persist writes the final document and the last-run timestamp record. The
// document is written via temp file and rename so readers never observe a
// partial map.
func (m *CodeMapper) persist(document models.FinalDocument) (string, error) {
	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create output directory: %w", err)
	}

	outputPath := filepath.Join(m.outputDir, MapFileName)

	tmp, err := os.CreateTemp(m.outputDir, "codebase_map_*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp output file: %w", err)
	}
	if _, err := tmp.WriteString(document.Content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize map: %w", err)
	}

	timestampPath := filepath.Join(m.outputDir, timestampFileName)
	if err := os.WriteFile(timestampPath, []byte(document.GeneratedAt.Format(time.RFC3339)), 0644); err != nil {
		m.logger.Warn("failed to write timestamp record", zap.Error(err))
	}

	m.logger.Info("map saved", zap.String("path", outputPath))
	return outputPath, nil
}
