package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// GenerationClient defines the standard interface for any text generation backend.
type GenerationClient interface {
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// GenerationError is returned by every backend when a completion call
// fails. Timeout is set when the failure was a deadline expiry so that
// callers can categorize structurally instead of inspecting message text.
type GenerationError struct {
	Backend string
	Timeout bool
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed (backend=%s): %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("generation failed (backend=%s)", e.Backend)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// IsGenerationError reports whether err is (or wraps) a *GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// IsGenerationTimeout reports whether err is a generation failure caused
// by a deadline expiry.
func IsGenerationTimeout(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Timeout
}

// NewGenerationClient selects a backend from the LLM_BACKEND_TYPE
// environment variable ("local" or "openai", default "local").
func NewGenerationClient() (GenerationClient, error) {
	backend := strings.ToLower(os.Getenv("LLM_BACKEND_TYPE"))
	switch backend {
	case "", "local":
		return NewLocalCompletionClient()
	case "openai":
		return NewOpenAIClient()
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND_TYPE %q", backend)
	}
}
