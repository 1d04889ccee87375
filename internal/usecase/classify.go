package usecase

import (
	"context"
	"errors"

	"weather-chat/internal/domain"
)

// TextGenerator is a single-shot prompt-in/text-out language model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier decides whether a message asks for the weather in a city.
type Classifier struct {
	llm TextGenerator
}

func NewClassifier(llm TextGenerator) (*Classifier, error) {
	if llm == nil {
		return nil, errors.New("usecase: text generator must not be nil")
	}
	return &Classifier{llm: llm}, nil
}

// Classify returns the decoded intent of message. The error, when non-nil, is
// an *Error with code UPSTREAM_ERROR.
func (c *Classifier) Classify(ctx context.Context, message string) (domain.Classification, error) {
	raw, err := c.llm.Generate(ctx, buildClassificationPrompt(message))
	if err != nil {
		return domain.Classification{}, newError(ErrorUpstream, "classify_error", err)
	}
	return parseClassification(raw), nil
}
