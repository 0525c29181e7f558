// Package retrieval wraps the vector-store capability behind a small
// interface: question in, ranked passages out.
package retrieval

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable wraps any failure of the retrieval capability. Callers are
// expected to degrade to an empty context block instead of failing the
// request.
var ErrUnavailable = errors.New("retrieval unavailable")

// Passage is a contiguous span of source text, the unit of retrieval.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float32 `json:"score"`
}

type Retriever interface {
	// Query returns up to top-k passages, most relevant first.
	Query(ctx context.Context, question string) ([]Passage, error)
}

// ContextSeparator joins passages into the prompt's context block. It is
// part of the prompt contract and must stay deterministic.
const ContextSeparator = "\n---\n"

// BuildContext joins passages most relevant first. Empty input yields an
// empty block, which the prompt assembler treats as "no context".
func BuildContext(passages []Passage) string {
	if len(passages) == 0 {
		return ""
	}
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, ContextSeparator)
}
