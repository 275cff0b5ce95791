package models

import "time"

// ErrorMarker prefixes the textual result of a failed chunk analysis.
// Classification of a ChunkResult hangs entirely on this prefix.
const ErrorMarker = "ERROR:"

// Item holds one scanned source file, immutable once produced.
type Item struct {
	RelativePath string
	Tokens       int
	Content      string
	Fingerprint  uint64
}

// Chunk is an ordered, non-empty group of items packed under a token budget.
// ID equals the chunk's position in packing order and doubles as the cache key.
type Chunk struct {
	ID       int
	Items    []Item
	Tokens   int
	Oversize bool
}

// Fingerprint combines the item fingerprints so a cache entry written for a
// previous version of the same chunk id can be detected as stale.
func (c *Chunk) Fingerprint() uint64 {
	var combined uint64
	for _, item := range c.Items {
		combined = combined*31 + item.Fingerprint
	}
	return combined
}

// ChunkResult is the outcome of analyzing one chunk.
type ChunkResult struct {
	ChunkID   int
	Text      string
	FromCache bool
}

// Failed reports whether the result carries the error marker.
func (r ChunkResult) Failed() bool {
	return len(r.Text) >= len(ErrorMarker) && r.Text[:len(ErrorMarker)] == ErrorMarker
}

// ScanSummary reports what a codebase scan found.
type ScanSummary struct {
	Files       int
	TotalTokens int
	Skipped     int
}

// FinalDocument is the synthesized codebase map plus its metadata header inputs.
type FinalDocument struct {
	Content     string
	GeneratedAt time.Time
	Model       string
	Codebase    string
	Synthesized bool
}
