package chat

import (
	"fmt"
	"strings"

	"github.com/atende-ai/atende/internal/vector"
)

// noContextPlaceholder stands in for the context block when retrieval finds
// nothing, so the model knows the knowledge base had no answer instead of
// receiving an empty section.
const noContextPlaceholder = "No context found in the documents."

const groundingInstruction = "Use the context below, retrieved from the " +
	"knowledge base, to answer the user's question. If the context does not " +
	"contain the answer, say you do not have that information instead of guessing."

// formatContext renders retrieval results as numbered sections separated by
// blank lines, nearest result first.
func formatContext(results []vector.Result) string {
	if len(results) == 0 {
		return noContextPlaceholder
	}

	sections := make([]string, len(results))
	for i, r := range results {
		sections[i] = fmt.Sprintf("--- Context %d ---\n%s", i+1, r.Content)
	}
	return strings.Join(sections, "\n\n")
}

// buildPrompt assembles the system prompt and the user message for the
// completion call. Pure function; all pipeline state arrives as arguments.
func buildPrompt(systemPrompt, contextBlock, question string) (system, user string) {
	system = strings.TrimSpace(systemPrompt) + "\n\n" + groundingInstruction + "\n\n" + contextBlock
	return system, question
}
