package llm

import "context"

// Summarizer condenses a news item's body into a short public extract.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
}
