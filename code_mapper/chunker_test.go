package code_mapper

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openclaw/clawtographer/code_mapper/models"
)

func makeItems(tokenCounts ...int) []models.Item {
	items := make([]models.Item, 0, len(tokenCounts))
	for i, tokens := range tokenCounts {
		items = append(items, models.Item{
			RelativePath: fmt.Sprintf("file_%d.go", i),
			Tokens:       tokens,
			Content:      fmt.Sprintf("content of file %d", i),
		})
	}
	return items
}

func TestBuildChunks_EmptyInput(t *testing.T) {
	chunks := BuildChunks(nil, 1000, zap.NewNop())
	assert.Empty(t, chunks)
}

func TestBuildChunks_EqualSizedFiles(t *testing.T) {
	// 5 files of 1000 tokens under a 2500 budget pack as [2, 2, 1].
	chunks := BuildChunks(makeItems(1000, 1000, 1000, 1000, 1000), 2500, zap.NewNop())

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Items, 2)
	assert.Len(t, chunks[1].Items, 2)
	assert.Len(t, chunks[2].Items, 1)

	// Equal token counts keep input order through the stable sort.
	assert.Equal(t, "file_0.go", chunks[0].Items[0].RelativePath)
	assert.Equal(t, "file_1.go", chunks[0].Items[1].RelativePath)
}

func TestBuildChunks_OversizeFileGetsOwnChunk(t *testing.T) {
	chunks := BuildChunks(makeItems(50000), 2000, zap.NewNop())

	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Oversize)
	assert.Len(t, chunks[0].Items, 1)
	assert.Equal(t, 50000, chunks[0].Tokens)
}

func TestBuildChunks_StableIDsFollowPackingOrder(t *testing.T) {
	chunks := BuildChunks(makeItems(900, 100, 800, 200), 1000, zap.NewNop())

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ID)
		assert.NotEmpty(t, chunk.Items)
	}
}

func TestBuildChunks_Deterministic(t *testing.T) {
	items := makeItems(500, 1200, 300, 300, 2500, 40, 40, 40)

	first := BuildChunks(items, 1500, zap.NewNop())
	second := BuildChunks(items, 1500, zap.NewNop())

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		require.Equal(t, len(first[i].Items), len(second[i].Items))
		for j := range first[i].Items {
			assert.Equal(t, first[i].Items[j].RelativePath, second[i].Items[j].RelativePath)
		}
	}
}

func TestBuildChunks_PartitionAndBudgetInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		budget := 500 + rng.Intn(5000)
		counts := make([]int, rng.Intn(60))
		for i := range counts {
			counts[i] = rng.Intn(2 * budget)
		}
		items := makeItems(counts...)

		chunks := BuildChunks(items, budget, zap.NewNop())

		// Every input item appears exactly once across all chunks.
		seen := make(map[string]int)
		for _, chunk := range chunks {
			total := 0
			for _, item := range chunk.Items {
				seen[item.RelativePath]++
				total += item.Tokens
			}
			assert.Equal(t, total, chunk.Tokens)

			// Budget holds except for the oversize singleton escape hatch.
			if chunk.Tokens > budget {
				assert.True(t, chunk.Oversize)
				assert.Len(t, chunk.Items, 1)
				assert.Greater(t, chunk.Items[0].Tokens, budget)
			}
		}

		require.Len(t, seen, len(items))
		for path, occurrences := range seen {
			assert.Equal(t, 1, occurrences, "item %s packed %d times", path, occurrences)
		}
	}
}
