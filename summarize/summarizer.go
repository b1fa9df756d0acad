// Package summarize reduces captured post text to a short summary by calling
// a hosted summarization model.
package summarize

import (
	"context"
	"strings"
)

// Summarizer produces a bounded-length abstractive summary of text. Only
// the upper word bound is enforced locally; the minimum length is advisory,
// passed to the model as a generation hint, so inputs or outputs shorter
// than it pass through unchanged. Calls are blocking and stateless; a
// failure is fatal to the single bookmark being created, never retried
// here.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// truncateWords caps s at max words. Used to enforce the configured upper
// bound regardless of how chatty the model is.
func truncateWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ")
}
