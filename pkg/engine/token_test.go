package engine_test

import (
	"strings"
	"testing"

	"github.com/easyops/contextengine-go/pkg/engine"
)

func TestCharEstimator_Estimate(t *testing.T) {
	estimator := engine.NewCharEstimator()

	if got := estimator.Estimate(""); got != 0 {
		t.Fatalf("expected 0 tokens for empty text, got %d", got)
	}

	if got := estimator.Estimate("abcdefgh"); got != 2 {
		t.Fatalf("expected 2 tokens for 8 chars, got %d", got)
	}

	// Non-empty text never estimates to zero.
	if got := estimator.Estimate("ab"); got < 1 {
		t.Fatalf("expected at least 1 token for non-empty text, got %d", got)
	}
}

func TestCharEstimator_Monotonic(t *testing.T) {
	estimator := engine.NewCharEstimator()

	text := "the quick brown fox"
	short := estimator.Estimate(text)
	long := estimator.Estimate(text + " jumps over the lazy dog")

	if long < short {
		t.Fatalf("longer superstring estimated smaller: %d < %d", long, short)
	}
}

func TestCharEstimator_Stable(t *testing.T) {
	estimator := &engine.CharEstimator{CharsPerToken: 1}

	text := strings.Repeat("x", 37)
	first := estimator.Estimate(text)
	second := estimator.Estimate(text)

	if first != second {
		t.Fatalf("estimate not stable: %d != %d", first, second)
	}
	if first != 37 {
		t.Fatalf("expected 37 tokens at 1 char/token, got %d", first)
	}
}

func TestDefaultTokenEstimator(t *testing.T) {
	estimator := engine.DefaultTokenEstimator()
	if estimator == nil {
		t.Fatal("expected non-nil estimator")
	}

	if got := estimator.Estimate(""); got != 0 {
		t.Fatalf("expected 0 tokens for empty text, got %d", got)
	}
	if got := estimator.Estimate("hello world"); got <= 0 {
		t.Fatalf("expected positive estimate, got %d", got)
	}
}
