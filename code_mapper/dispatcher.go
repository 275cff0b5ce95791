package code_mapper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/clawtographer/code_mapper/models"
	"github.com/openclaw/clawtographer/providers/contracts"
)

// Dispatcher runs chunk analyses through the backend with bounded concurrency,
// consulting the chunk cache before paying for a backend call. Failed chunks
// produce error-marked results and are never cached, so the next run retries
// exactly those.
type Dispatcher struct {
	backend      contracts.IChatBackend
	cache        *ChunkCache
	maxParallel  int
	chunkTimeout time.Duration
	logger       *zap.Logger

	// OnProgress, when set, is called after each chunk completes with the
	// running completed count and the total.
	OnProgress func(completed, total int)
}

// NewDispatcher initializes a Dispatcher.
func NewDispatcher(backend contracts.IChatBackend, cache *ChunkCache, maxParallel int, chunkTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if maxParallel <= 0 {
		maxParallel = 3
	}
	if chunkTimeout <= 0 {
		chunkTimeout = 5 * time.Minute
	}
	return &Dispatcher{
		backend:      backend,
		cache:        cache,
		maxParallel:  maxParallel,
		chunkTimeout: chunkTimeout,
		logger:       logger,
	}
}

// Dispatch analyzes all chunks and returns their results in completion order.
// Each result keeps its chunk id for later re-sorting. Cache hits occupy a
// worker slot like any other chunk.
func (d *Dispatcher) Dispatch(ctx context.Context, chunks []models.Chunk) []models.ChunkResult {
	jobs := make(chan models.Chunk, len(chunks))
	results := make(chan models.ChunkResult, len(chunks))
	var wg sync.WaitGroup

	d.logger.Info("analyzing chunks",
		zap.Int("chunks", len(chunks)),
		zap.Int("maxParallel", d.maxParallel))

	for w := 0; w < d.maxParallel; w++ {
		wg.Add(1)
		workerLogger := d.logger.With(zap.Int("workerID", w))
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				results <- d.analyzeChunk(ctx, chunk, workerLogger)
			}
		}()
	}

	for _, chunk := range chunks {
		jobs <- chunk
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]models.ChunkResult, 0, len(chunks))
	for result := range results {
		collected = append(collected, result)
		if d.OnProgress != nil {
			d.OnProgress(len(collected), len(chunks))
		}
	}

	return collected
}

// analyzeChunk resolves one chunk: cache hit, fresh backend analysis, or an
// error-marked result. Error results are not written to the cache.
func (d *Dispatcher) analyzeChunk(ctx context.Context, chunk models.Chunk, logger *zap.Logger) models.ChunkResult {
	if d.cache.Exists(chunk.ID, chunk.Fingerprint()) {
		text, err := d.cache.Read(chunk.ID)
		if err == nil {
			logger.Info("using cached analysis", zap.Int("chunkID", chunk.ID))
			return models.ChunkResult{ChunkID: chunk.ID, Text: text, FromCache: true}
		}
		logger.Warn("failed to read cache entry, re-analyzing",
			zap.Int("chunkID", chunk.ID), zap.Error(err))
	}

	if chunk.Oversize {
		logger.Warn("analyzing oversize chunk",
			zap.Int("chunkID", chunk.ID),
			zap.Int("tokens", chunk.Tokens))
	}

	logger.Info("analyzing chunk",
		zap.Int("chunkID", chunk.ID),
		zap.Int("files", len(chunk.Items)),
		zap.Int("tokens", chunk.Tokens))

	prompt := BuildChunkPrompt(chunk)

	callCtx, cancel := context.WithTimeout(ctx, d.chunkTimeout)
	defer cancel()

	analysis, err := d.backend.Generate(callCtx, prompt)
	if err != nil {
		var errText string
		if errors.Is(err, context.DeadlineExceeded) {
			errText = fmt.Sprintf("%s analysis timed out (>%s)", models.ErrorMarker, d.chunkTimeout)
		} else {
			errText = fmt.Sprintf("%s backend request failed - %v", models.ErrorMarker, err)
		}
		logger.Error("chunk analysis failed", zap.Int("chunkID", chunk.ID), zap.Error(err))
		return models.ChunkResult{ChunkID: chunk.ID, Text: errText}
	}

	if analysis == "" {
		logger.Error("backend returned empty response", zap.Int("chunkID", chunk.ID))
		return models.ChunkResult{ChunkID: chunk.ID, Text: fmt.Sprintf("%s backend returned empty response", models.ErrorMarker)}
	}

	if err := d.cache.Write(chunk.ID, chunk.Fingerprint(), analysis); err != nil {
		// A failed cache write costs resumability, not correctness.
		logger.Warn("failed to cache analysis", zap.Int("chunkID", chunk.ID), zap.Error(err))
	}

	return models.ChunkResult{ChunkID: chunk.ID, Text: analysis}
}
