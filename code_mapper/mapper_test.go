package code_mapper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestMapper wires a full pipeline against temp dirs and a fake backend.
func newTestMapper(t *testing.T, backend *fakeBackend, budget int) (*CodeMapper, *ChunkCache, string, string) {
	t.Helper()

	codebaseDir := t.TempDir()
	outputDir := t.TempDir()
	logger := zap.NewNop()
	counter := &fakeCounter{}

	cache, err := NewChunkCache(filepath.Join(outputDir, ".clawtographer_cache"))
	require.NoError(t, err)

	scanner := NewScanner(counter, logger)
	dispatcher := NewDispatcher(backend, cache, 2, time.Minute, logger)
	synthesizer := NewSynthesizer(backend, counter, 2000, 100000, time.Minute, logger)
	mapper := NewCodeMapper(scanner, cache, dispatcher, synthesizer, budget, nil, outputDir, logger)

	return mapper, cache, codebaseDir, outputDir
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestCodeMapper_RunWritesMapAndEvictsCache(t *testing.T) {
	backend := &fakeBackend{generate: func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "CODEBASE MAP") {
			return "final map body", nil
		}
		return "chunk analysis", nil
	}}
	mapper, cache, codebaseDir, outputDir := newTestMapper(t, backend, 1000)

	writeSource(t, codebaseDir, "main.go", "package main\n\nfunc main() {}\n")
	writeSource(t, codebaseDir, "util.go", "package main\n\nfunc helper() {}\n")

	report, err := mapper.Run(context.Background(), codebaseDir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scan.Files)
	assert.Empty(t, report.Failed)
	assert.True(t, report.Synthesized)
	assert.Equal(t, filepath.Join(outputDir, MapFileName), report.OutputPath)

	content, err := os.ReadFile(report.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Codebase Map")
	assert.Contains(t, string(content), "final map body")

	timestampRaw, err := os.ReadFile(filepath.Join(outputDir, ".clawtographer_timestamp"))
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, string(timestampRaw))
	assert.NoError(t, err)

	// Every chunk succeeded, so the cache is empty after reconciliation.
	stats, err := cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats["cached_chunks"])
	assert.Equal(t, int64(0), stats["total_size"])
}

func TestCodeMapper_EmptyCodebase(t *testing.T) {
	backend := &fakeBackend{}
	mapper, _, codebaseDir, _ := newTestMapper(t, backend, 1000)

	_, err := mapper.Run(context.Background(), codebaseDir)
	assert.ErrorIs(t, err, ErrNothingToAnalyze)
	assert.Equal(t, 0, backend.callCount())
}

func TestCodeMapper_MissingCodebasePath(t *testing.T) {
	backend := &fakeBackend{}
	mapper, _, _, _ := newTestMapper(t, backend, 1000)

	_, err := mapper.Run(context.Background(), "/nonexistent/path/nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestCodeMapper_AllChunksFailedLeavesNoDocument(t *testing.T) {
	backend := &fakeBackend{generate: func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("backend down")
	}}
	mapper, cache, codebaseDir, outputDir := newTestMapper(t, backend, 1000)

	writeSource(t, codebaseDir, "main.go", "package main\n")

	// A leftover entry from an earlier, larger run must survive a failed run.
	require.NoError(t, cache.Write(9, 12345, "leftover analysis"))

	_, err := mapper.Run(context.Background(), codebaseDir)
	assert.ErrorIs(t, err, ErrAllChunksFailed)

	_, statErr := os.Stat(filepath.Join(outputDir, MapFileName))
	assert.True(t, os.IsNotExist(statErr))

	stats, statsErr := cache.Stats()
	require.NoError(t, statsErr)
	assert.Equal(t, 1, stats["cached_chunks"])
}

func TestCodeMapper_PartialFailureStillProducesMap(t *testing.T) {
	backend := &fakeBackend{generate: func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "CODEBASE MAP") {
			return "partial map", nil
		}
		if strings.Contains(prompt, "bad.go") {
			return "", errors.New("model choked")
		}
		return "chunk analysis", nil
	}}
	// Budget of 1 forces one chunk per file.
	mapper, cache, codebaseDir, _ := newTestMapper(t, backend, 1)

	writeSource(t, codebaseDir, "good.go", "package main\n\nfunc ok() {}\n")
	writeSource(t, codebaseDir, "bad.go", "package main\n\nfunc broken() {}\n")

	report, err := mapper.Run(context.Background(), codebaseDir)
	require.NoError(t, err)

	assert.Len(t, report.Failed, 1)
	assert.Equal(t, 2, report.Chunks)

	content, err := os.ReadFile(report.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "partial map")

	// Only the succeeded chunk's entry was evicted; the failed one never
	// existed, so the cache ends up empty and the next run retries it.
	stats, statsErr := cache.Stats()
	require.NoError(t, statsErr)
	assert.Equal(t, 0, stats["cached_chunks"])
}

func TestCodeMapper_SecondRunUsesCacheAfterFailedSynthesisEviction(t *testing.T) {
	synthesisFails := true
	backend := &fakeBackend{generate: func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "CODEBASE MAP") {
			if synthesisFails {
				return "", errors.New("synthesis down")
			}
			return "map", nil
		}
		return "chunk analysis", nil
	}}
	mapper, _, codebaseDir, _ := newTestMapper(t, backend, 1000)

	writeSource(t, codebaseDir, "main.go", "package main\n")

	// Failed synthesis degrades to concatenation; the run still completes and
	// the succeeded chunk is evicted.
	report, err := mapper.Run(context.Background(), codebaseDir)
	require.NoError(t, err)
	assert.False(t, report.Synthesized)

	synthesisFails = false
	chunkCallsBefore := backend.callCount()

	report, err = mapper.Run(context.Background(), codebaseDir)
	require.NoError(t, err)
	assert.True(t, report.Synthesized)
	assert.Equal(t, 0, report.FromCache)
	// Chunk was evicted last run, so it is re-analyzed plus one synthesis call.
	assert.Equal(t, chunkCallsBefore+2, backend.callCount())
}
