package provider

import (
	"context"
	"errors"
	"fmt"
)

// Generator is the abstraction over generative text services.
type Generator interface {
	// Generate produces text for the prompt using the named model.
	Generate(ctx context.Context, model, prompt string) (string, error)
	Name() string
}

// RateLimitError marks a throttled call that is worth retrying on the
// same model after a short delay.
type RateLimitError struct {
	Model  string
	Detail string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on %s: %s", e.Model, e.Detail)
}

// IsRateLimit reports whether err is a rate-limit classification.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
