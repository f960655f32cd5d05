package writer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/juniperhq/postpilot/llm"
)

// ConstraintError reports that the model never produced a response
// within the requested word-count band.
type ConstraintError struct {
	Target    int
	Tolerance int
	Attempts  int
	MinWords  int
	MaxWords  int
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("writer: word count constraint not met after %d attempts: got %d-%d words, want %d±%d",
		e.Attempts, e.MinWords, e.MaxWords, e.Target, e.Tolerance)
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// genState is the retry state of one constrained generation.
type genState int

const (
	genPending genState = iota
	genRetrying
	genAccepted
	genExhausted
)

// generateConstrained wraps a model call with a word-count band of
// target±tolerance and retries until the response fits or maxRetries
// calls have been spent. Exhaustion is the single terminal failure,
// reported as a *ConstraintError.
func (w *Writer) generateConstrained(ctx context.Context, prompt llm.Prompt, target, tolerance, maxRetries int) (string, error) {
	lower := target - tolerance
	if lower < 0 {
		lower = 0
	}
	prompt.User += fmt.Sprintf("\n\nThe response must be between %d and %d words long.", lower, target+tolerance)

	state := genPending
	minSeen, maxSeen := 0, 0
	var text string

	for attempt := 1; state != genAccepted && state != genExhausted; attempt++ {
		var err error
		text, err = w.llm.Complete(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("writer: constrained generation: %w", err)
		}

		count := CountWords(text)
		if attempt == 1 || count < minSeen {
			minSeen = count
		}
		if count > maxSeen {
			maxSeen = count
		}

		switch {
		case count >= target-tolerance && count <= target+tolerance:
			state = genAccepted
		case attempt >= maxRetries:
			state = genExhausted
		default:
			state = genRetrying
			slog.Info("word count out of range, retrying",
				"attempt", attempt, "words", count, "target", target, "tolerance", tolerance)
		}

		if state == genExhausted {
			return "", &ConstraintError{
				Target:    target,
				Tolerance: tolerance,
				Attempts:  attempt,
				MinWords:  minSeen,
				MaxWords:  maxSeen,
			}
		}
	}
	return text, nil
}
