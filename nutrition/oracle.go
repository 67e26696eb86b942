package nutrition

import "context"

// Oracle is the external text/vision completion service the pipeline consumes.
// It returns raw completion text; callers own parsing and validation, since
// the oracle's output is untrusted. When strict is set the adapter re-prompts
// with a tighter JSON-only instruction, used for the single retry after a
// malformed answer.
type Oracle interface {
	Classify(ctx context.Context, text string) (string, error)
	AnalyzeText(ctx context.Context, description, portionHint string, strict bool) (string, error)
	AnalyzeImage(ctx context.Context, image []byte, caption string, strict bool) (string, error)
}

// SimilarFoodIndex retrieves previously resolved foods that resemble a new
// description, used to ground the analysis prompt. Implementations may be
// unavailable at runtime; the pipeline treats a nil index as "no context".
type SimilarFoodIndex interface {
	Similar(ctx context.Context, description string, topK int) ([]string, error)
	Remember(ctx context.Context, foodName, description string) error
}
