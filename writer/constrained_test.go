package writer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/juniperhq/postpilot/llm"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestGenerateConstrainedAcceptsThirdAttempt(t *testing.T) {
	mock := &llm.Mock{Responses: []string{words(50), words(500), words(505)}}
	w := New(mock)

	got, err := w.generateConstrained(context.Background(), llm.Prompt{User: "write"}, 500, 50, 3)
	if err != nil {
		t.Fatalf("generateConstrained failed: %v", err)
	}
	if CountWords(got) != 505 {
		t.Errorf("returned %d words, want the third response (505)", CountWords(got))
	}
	if len(mock.Calls) != 3 {
		t.Errorf("model called %d times, want 3", len(mock.Calls))
	}
}

func TestGenerateConstrainedFirstAttemptInRange(t *testing.T) {
	mock := &llm.Mock{Responses: []string{words(480), words(500)}}
	w := New(mock)

	got, err := w.generateConstrained(context.Background(), llm.Prompt{User: "write"}, 500, 50, 3)
	if err != nil {
		t.Fatalf("generateConstrained failed: %v", err)
	}
	if CountWords(got) != 480 {
		t.Errorf("returned %d words, want first in-range response", CountWords(got))
	}
	if len(mock.Calls) != 1 {
		t.Errorf("model called %d times, want 1", len(mock.Calls))
	}
}

func TestGenerateConstrainedExhaustion(t *testing.T) {
	mock := &llm.Mock{Responses: []string{words(10), words(20), words(990)}}
	w := New(mock)

	_, err := w.generateConstrained(context.Background(), llm.Prompt{User: "write"}, 500, 50, 3)
	var cerr *ConstraintError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConstraintError, got %v", err)
	}
	if cerr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", cerr.Attempts)
	}
	if cerr.MinWords != 10 || cerr.MaxWords != 990 {
		t.Errorf("observed range = %d-%d, want 10-990", cerr.MinWords, cerr.MaxWords)
	}
	if cerr.Target != 500 || cerr.Tolerance != 50 {
		t.Errorf("target/tolerance = %d/%d, want 500/50", cerr.Target, cerr.Tolerance)
	}
}

func TestGenerateConstrainedAppendsRangeInstruction(t *testing.T) {
	mock := &llm.Mock{Responses: []string{words(500)}}
	w := New(mock)

	if _, err := w.generateConstrained(context.Background(), llm.Prompt{User: "write"}, 500, 50, 3); err != nil {
		t.Fatalf("generateConstrained failed: %v", err)
	}
	if !strings.Contains(mock.Calls[0].User, "between 450 and 550 words") {
		t.Errorf("prompt missing word range instruction: %q", mock.Calls[0].User)
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"two  words", 2},
		{"line\nbreaks\tand tabs", 4},
	}
	for _, tt := range tests {
		if got := CountWords(tt.input); got != tt.expected {
			t.Errorf("CountWords(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}
