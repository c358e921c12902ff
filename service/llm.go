package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/siherrmann/ragpipe/model"
)

// Error categories for generation failures. Wrapped errors from LLM
// implementations are matched with errors.Is.
var (
	// ErrRateLimited marks quota or rate limit rejections. Never retried,
	// as immediate retries only burn more quota; check the API quota and
	// retry later.
	ErrRateLimited = errors.New("llm rate limited, check API quota and retry later")
	// ErrUnauthorized marks credential failures; never retried.
	ErrUnauthorized = errors.New("llm unauthorized, check the API key")
	// ErrTransient marks temporary failures such as timeouts and 5xx
	// responses; retried with backoff.
	ErrTransient = errors.New("llm transient failure")
)

// LLM generates an answer from a system prompt, prior conversation turns
// and the final user prompt.
type LLM interface {
	Generate(ctx context.Context, system string, history []model.Turn, prompt string) (string, error)
}

// generateWithRetry calls the LLM, retrying transient failures with
// exponential backoff. Rate limited, unauthorized and unknown errors
// fail immediately.
func generateWithRetry(ctx context.Context, llm LLM, system string, history []model.Turn, prompt string, maxRetries int, initialBackoff time.Duration) (string, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if initialBackoff <= 0 {
		initialBackoff = time.Second
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	var text string
	operation := func() error {
		var err error
		text, err = llm.Generate(ctx, system, history, prompt)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}
