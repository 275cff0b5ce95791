package code_mapper

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ChunkCache persists per-chunk analysis results so an interrupted run can
// resume without re-paying for completed chunks. Entries are keyed by the
// zero-padded chunk id. A fingerprint sidecar detects entries written for a
// previous version of the same chunk id; those are purged and treated as
// misses.
type ChunkCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// NewChunkCache creates the cache directory if needed.
func NewChunkCache(cacheDir string) (*ChunkCache, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		cacheDir = filepath.Join(cwd, ".clawtographer_cache")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &ChunkCache{cacheDir: cacheDir}, nil
}

// Dir returns the cache directory path.
func (cc *ChunkCache) Dir() string {
	return cc.cacheDir
}

func (cc *ChunkCache) entryPath(chunkID int) string {
	return filepath.Join(cc.cacheDir, fmt.Sprintf("chunk_%03d.md", chunkID))
}

func (cc *ChunkCache) fingerprintPath(chunkID int) string {
	return filepath.Join(cc.cacheDir, fmt.Sprintf("chunk_%03d.sum", chunkID))
}

// Exists reports whether a valid entry for chunkID is present. An entry whose
// recorded fingerprint does not match is stale; it is removed and reported
// as absent.
func (cc *ChunkCache) Exists(chunkID int, fingerprint uint64) bool {
	cc.mutex.RLock()
	_, err := os.Stat(cc.entryPath(chunkID))
	if err != nil {
		cc.mutex.RUnlock()
		return false
	}

	recorded, sumErr := os.ReadFile(cc.fingerprintPath(chunkID))
	cc.mutex.RUnlock()

	if sumErr == nil {
		stored, parseErr := strconv.ParseUint(strings.TrimSpace(string(recorded)), 16, 64)
		if parseErr == nil && stored == fingerprint {
			return true
		}
	}

	// Stale or unverifiable entry.
	cc.Delete(chunkID)
	return false
}

// Read returns the cached result text for chunkID.
func (cc *ChunkCache) Read(chunkID int) (string, error) {
	cc.mutex.RLock()
	defer cc.mutex.RUnlock()

	data, err := os.ReadFile(cc.entryPath(chunkID))
	if err != nil {
		return "", fmt.Errorf("failed to read cache entry for chunk %d: %w", chunkID, err)
	}
	return string(data), nil
}

// Write persists the result text for chunkID. The entry is written to a
// temporary file and renamed into place so a crash mid-write never leaves a
// half-written entry that a later run would read as valid.
func (cc *ChunkCache) Write(chunkID int, fingerprint uint64, text string) error {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	dest := cc.entryPath(chunkID)
	tmp, err := os.CreateTemp(cc.cacheDir, "chunk_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalize cache entry: %w", err)
	}

	if err := os.WriteFile(cc.fingerprintPath(chunkID), []byte(fmt.Sprintf("%016x\n", fingerprint)), 0644); err != nil {
		return fmt.Errorf("failed to write cache fingerprint: %w", err)
	}

	return nil
}

// Delete removes the entry for chunkID, if any.
func (cc *ChunkCache) Delete(chunkID int) error {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	if err := os.Remove(cc.entryPath(chunkID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry for chunk %d: %w", chunkID, err)
	}
	if err := os.Remove(cc.fingerprintPath(chunkID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache fingerprint for chunk %d: %w", chunkID, err)
	}
	return nil
}

// Clear removes every entry in the cache directory.
func (cc *ChunkCache) Clear() error {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	entries, err := os.ReadDir(cc.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		os.Remove(filepath.Join(cc.cacheDir, entry.Name()))
	}
	return nil
}

// Stats reports entry count and total size of the cache directory.
func (cc *ChunkCache) Stats() (map[string]interface{}, error) {
	cc.mutex.RLock()
	defer cc.mutex.RUnlock()

	entries, err := os.ReadDir(cc.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var totalSize int64
	var count int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		if info, err := entry.Info(); err == nil {
			totalSize += info.Size()
		}
		count++
	}

	stats := make(map[string]interface{})
	stats["cache_dir"] = cc.cacheDir
	stats["cached_chunks"] = count
	stats["total_size"] = totalSize
	return stats, nil
}
