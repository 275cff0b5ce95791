package code_mapper

import (
	"sort"

	"go.uber.org/zap"

	"github.com/openclaw/clawtographer/code_mapper/models"
)

// BuildChunks groups items into chunks whose token totals stay under budget.
// Items are packed largest-first, a greedy heuristic that fills chunks better
// than scan order. An item that alone exceeds the budget is emitted as its own
// oversize singleton chunk rather than dropped. Chunk ids follow packing order,
// so the same item set and budget always partition the same way.
func BuildChunks(items []models.Item, budget int, logger *zap.Logger) []models.Chunk {
	sorted := make([]models.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tokens > sorted[j].Tokens
	})

	var chunks []models.Chunk
	var current []models.Item
	currentTokens := 0

	closeCurrent := func() {
		if len(current) > 0 {
			chunks = append(chunks, models.Chunk{Items: current, Tokens: currentTokens})
			current = nil
			currentTokens = 0
		}
	}

	for _, item := range sorted {
		if item.Tokens > budget {
			chunks = append(chunks, models.Chunk{
				Items:    []models.Item{item},
				Tokens:   item.Tokens,
				Oversize: true,
			})
			logger.Warn("oversize file placed in its own chunk",
				zap.String("path", item.RelativePath),
				zap.Int("tokens", item.Tokens),
				zap.Int("budget", budget))
			continue
		}

		if currentTokens+item.Tokens > budget {
			closeCurrent()
		}
		current = append(current, item)
		currentTokens += item.Tokens
	}
	closeCurrent()

	for i := range chunks {
		chunks[i].ID = i
	}

	logger.Info("created chunks", zap.Int("chunks", len(chunks)), zap.Int("budget", budget))
	return chunks
}
