package code_mapper

import (
	"fmt"
	"strings"

	"github.com/openclaw/clawtographer/code_mapper/models"
)

// BuildChunkPrompt renders the analysis prompt for one chunk: the file list,
// then each file's path-delimited content, then the fixed instruction.
func BuildChunkPrompt(chunk models.Chunk) string {
	paths := make([]string, 0, len(chunk.Items))
	contents := make([]string, 0, len(chunk.Items))
	for _, item := range chunk.Items {
		paths = append(paths, fmt.Sprintf("- %s", item.RelativePath))
		contents = append(contents, fmt.Sprintf("=== %s ===\n%s", item.RelativePath, item.Content))
	}

	return fmt.Sprintf(`Analyze these code files:

%s

For each file, describe:
1. Purpose and main responsibility
2. Key functions, classes, or exports
3. Dependencies (what it imports/requires)
4. Important patterns or logic

Files:
%s

Provide clear, concise analysis in markdown format.`,
		strings.Join(paths, "\n"),
		strings.Join(contents, "\n\n"))
}

// BuildSynthesisPrompt renders the single synthesis prompt over the reduced
// per-chunk summaries.
func BuildSynthesisPrompt(combinedSummaries string) string {
	return fmt.Sprintf(`You are creating a comprehensive CODEBASE MAP from multiple code analyses.

Here are summaries from different parts of the codebase:

%s

Create a well-organized codebase map with:

1. **Overview** - What this codebase does (high-level purpose)
2. **Architecture** - Main components and how they relate
3. **Directory Structure** - Key directories and their purposes
4. **Important Files** - Critical files and what they do
5. **Data Flow** - How information moves through the system
6. **Entry Points** - Where execution begins
7. **Dependencies** - External libraries and internal dependencies

Make it clear, organized, and useful for someone learning this codebase.
Use markdown formatting with headers and lists.`, combinedSummaries)
}
