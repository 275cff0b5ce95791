package code_mapper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/clawtographer/code_mapper/models"
	"github.com/openclaw/clawtographer/providers/contracts"
	contracts2 "github.com/openclaw/clawtographer/token_management/contracts"
)

// Synthesizer collapses per-chunk results into one final document. The
// synthesis call is itself budget-bound: results are reduced to capped
// summaries first, and if even the reduced form exceeds the synthesis ceiling
// (or the backend call fails), the full per-chunk texts are concatenated
// instead. Concatenation is a degraded mode, not a failure.
type Synthesizer struct {
	backend          contracts.IChatBackend
	counter          contracts2.ITokenManagement
	summaryCharCap   int
	tokenCeiling     int
	synthesisTimeout time.Duration
	logger           *zap.Logger
}

// NewSynthesizer initializes a Synthesizer.
func NewSynthesizer(backend contracts.IChatBackend, counter contracts2.ITokenManagement, summaryCharCap int, tokenCeiling int, synthesisTimeout time.Duration, logger *zap.Logger) *Synthesizer {
	if summaryCharCap <= 0 {
		summaryCharCap = 2000
	}
	if tokenCeiling <= 0 {
		tokenCeiling = 100000
	}
	if synthesisTimeout <= 0 {
		synthesisTimeout = 4 * time.Minute
	}
	return &Synthesizer{
		backend:          backend,
		counter:          counter,
		summaryCharCap:   summaryCharCap,
		tokenCeiling:     tokenCeiling,
		synthesisTimeout: synthesisTimeout,
		logger:           logger,
	}
}

// Synthesize produces the final document from all chunk results, failed ones
// included: their error text is informative content for the map.
func (s *Synthesizer) Synthesize(ctx context.Context, results []models.ChunkResult, codebasePath string) models.FinalDocument {
	ordered := make([]models.ChunkResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ChunkID < ordered[j].ChunkID
	})

	summaries := make([]string, 0, len(ordered))
	for _, result := range ordered {
		summary := result.Text
		if len(summary) > s.summaryCharCap {
			summary = summary[:s.summaryCharCap] + "\n... (truncated)"
		}
		summaries = append(summaries, fmt.Sprintf("## Chunk %d\n%s", result.ChunkID+1, summary))
	}
	combinedSummaries := strings.Join(summaries, "\n\n")

	summaryTokens := s.counter.CountTokens(combinedSummaries)
	if summaryTokens > s.tokenCeiling {
		s.logger.Warn("codebase too large for synthesis, concatenating analyses",
			zap.Int("summaryTokens", summaryTokens),
			zap.Int("ceiling", s.tokenCeiling))
		return s.finalize(concatenateResults(ordered), codebasePath, false)
	}

	s.logger.Info("running synthesis", zap.Int("summaryTokens", summaryTokens))

	callCtx, cancel := context.WithTimeout(ctx, s.synthesisTimeout)
	defer cancel()

	synthesized, err := s.backend.Generate(callCtx, BuildSynthesisPrompt(combinedSummaries))
	if err != nil || synthesized == "" {
		// Unit-level work already succeeded; never abort the run here.
		s.logger.Warn("synthesis failed, concatenating analyses", zap.Error(err))
		return s.finalize(concatenateResults(ordered), codebasePath, false)
	}

	return s.finalize(synthesized, codebasePath, true)
}

// concatenateResults joins the full, untruncated chunk texts with section
// headers, preserving chunk id order.
func concatenateResults(ordered []models.ChunkResult) string {
	blocks := make([]string, 0, len(ordered))
	for _, result := range ordered {
		blocks = append(blocks, fmt.Sprintf("## Analysis Block %d\n\n%s", result.ChunkID+1, result.Text))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// finalize wraps the body with the metadata header.
func (s *Synthesizer) finalize(content string, codebasePath string, synthesized bool) models.FinalDocument {
	now := time.Now()

	analysisNote := "synthesized"
	if !synthesized {
		analysisNote = "concatenated (too large for synthesis)"
	}

	final := fmt.Sprintf(`# Codebase Map

**Generated:** %s
**Tool:** Clawtographer (OpenClaw)
**Model:** %s (local/free)
**Location:** %s
**Analysis:** %s

---

%s

---

*This map was automatically generated by Clawtographer using local LLM analysis.
To update: re-run clawtographer map %s*
`,
		now.Format("2006-01-02 15:04:05"),
		s.backend.Model(),
		codebasePath,
		analysisNote,
		content,
		codebasePath)

	return models.FinalDocument{
		Content:     final,
		GeneratedAt: now,
		Model:       s.backend.Model(),
		Codebase:    codebasePath,
		Synthesized: synthesized,
	}
}
