package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	cerrors "github.com/easyops/contextengine-go/pkg/core/errors"
	"github.com/easyops/contextengine-go/pkg/engine"
)

// stubRetriever is a deterministic retriever for tests. Pages are indexed
// by offset/limit; when repeat is set every page returns the same blocks.
type stubRetriever struct {
	pages     [][]engine.PackBlock
	repeat    []engine.PackBlock
	err       error
	paginated bool
	calls     []engine.RetrieverRequest
}

func (s *stubRetriever) SupportsPagination() bool {
	return s.paginated
}

func (s *stubRetriever) Retrieve(_ context.Context, req engine.RetrieverRequest) (*engine.Pack, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	if s.repeat != nil {
		return engine.BuildPack(s.repeat), nil
	}

	page := 0
	if req.Limit > 0 {
		page = req.Offset / req.Limit
	}
	if page >= len(s.pages) {
		return engine.BuildPack(nil), nil
	}
	return engine.BuildPack(s.pages[page]), nil
}

func blockOf(id, text string) engine.PackBlock {
	return engine.PackBlock{EvidenceItemID: id, Text: text}
}

func newTestResolver() *engine.PackResolver {
	est := charEstimator()
	return engine.NewPackResolver(est, engine.NewRetrieverRegistry(), engine.NewCompactorRegistry(est), 5)
}

func testPolicy(maxPages int, minFill float64, overflow engine.OverflowMode) engine.ContextPolicy {
	return engine.ContextPolicy{
		InputBudget: engine.InputBudget{MaxTokens: 4096},
		PackBudget:  engine.PackBudget{DefaultRatio: 1.0},
		Overflow:    overflow,
		Compactor:   engine.CompactorSpec{Name: engine.CompactorTruncate},
		Expansion:   engine.ExpansionConfig{MaxPages: maxPages, MinFillRatio: minFill},
	}
}

func TestPackResolver_ExpansionTermination(t *testing.T) {
	// A retriever that always returns exactly limit blocks with max_pages=3
	// must be called at offsets 0, limit, 2*limit and never a 4th time.
	retriever := &stubRetriever{
		repeat:    []engine.PackBlock{blockOf("a", "ab"), blockOf("b", "cd")},
		paginated: true,
	}
	policy := testPolicy(3, 1.0, engine.OverflowCompact)

	resolved, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb", Limit: 2},
		Budget:   1000,
		Policy:   &policy,
		Override: retriever,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(retriever.calls) != 3 {
		t.Fatalf("expected exactly 3 retrieval calls, got %d", len(retriever.calls))
	}
	wantOffsets := []int{0, 2, 4}
	for i, call := range retriever.calls {
		if call.Offset != wantOffsets[i] {
			t.Errorf("call %d: expected offset %d, got %d", i, wantOffsets[i], call.Offset)
		}
		if call.Limit != 2 {
			t.Errorf("call %d: expected limit 2, got %d", i, call.Limit)
		}
	}
	if resolved.Pages != 3 {
		t.Fatalf("expected 3 pages, got %d", resolved.Pages)
	}
}

func TestPackResolver_ExpansionFill(t *testing.T) {
	// Each page yields one block worth 20% of the budget; min_fill_ratio=1.0
	// is never satisfied, so the resolver issues exactly max_pages requests.
	retriever := &stubRetriever{
		repeat:    []engine.PackBlock{blockOf("a", strings.Repeat("x", 20))},
		paginated: true,
	}
	policy := testPolicy(3, 1.0, engine.OverflowCompact)

	_, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb", Limit: 1},
		Budget:   100,
		Policy:   &policy,
		Override: retriever,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(retriever.calls) != 3 {
		t.Fatalf("expected exactly 3 retrieval calls, got %d", len(retriever.calls))
	}
}

func TestPackResolver_ZeroBlocksStopExpansion(t *testing.T) {
	// The second page returns zero blocks, which means "no more pages"
	// regardless of max_pages.
	retriever := &stubRetriever{
		pages: [][]engine.PackBlock{
			{blockOf("a", "hello")},
		},
		paginated: true,
	}
	policy := testPolicy(10, 1.0, engine.OverflowCompact)

	resolved, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb", Limit: 1},
		Budget:   1000,
		Policy:   &policy,
		Override: retriever,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(retriever.calls) != 2 {
		t.Fatalf("expected 2 retrieval calls, got %d", len(retriever.calls))
	}
	if resolved.Text != "hello" {
		t.Fatalf("expected accumulated text %q, got %q", "hello", resolved.Text)
	}
}

func TestPackResolver_NoCompactionWhenFits(t *testing.T) {
	// A pack that already fits its budget is returned byte-identical to the
	// retriever output, with no compaction artifacts.
	raw := "first block\n\nsecond block"
	retriever := &stubRetriever{
		pages: [][]engine.PackBlock{
			{blockOf("a", "first block"), blockOf("b", "second block")},
		},
	}
	policy := testPolicy(1, 0.0, engine.OverflowCompact)

	resolved, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb", Limit: 2},
		Budget:   1000,
		Policy:   &policy,
		Override: retriever,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resolved.Text != raw {
		t.Fatalf("expected raw retriever output %q, got %q", raw, resolved.Text)
	}
	if resolved.Compacted {
		t.Fatal("pack that fits must not be compacted")
	}
	if resolved.EvidenceCount != 2 {
		t.Fatalf("expected 2 evidence items, got %d", resolved.EvidenceCount)
	}
}

func TestPackResolver_CompactOverflow(t *testing.T) {
	retriever := &stubRetriever{
		pages: [][]engine.PackBlock{
			{blockOf("a", strings.Repeat("x", 50))},
		},
	}
	policy := testPolicy(1, 0.0, engine.OverflowCompact)

	resolved, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb", Limit: 1},
		Budget:   10,
		Policy:   &policy,
		Override: retriever,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resolved.Compacted {
		t.Fatal("expected pack to be compacted")
	}
	if resolved.Tokens > 10 {
		t.Fatalf("compacted pack has %d tokens, budget is 10", resolved.Tokens)
	}
}

func TestPackResolver_OverflowError(t *testing.T) {
	retriever := &stubRetriever{
		pages: [][]engine.PackBlock{
			{blockOf("a", strings.Repeat("x", 50))},
		},
	}
	policy := testPolicy(1, 0.0, engine.OverflowError)

	_, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb", Limit: 1},
		Budget:   10,
		Policy:   &policy,
		Override: retriever,
	})
	if err == nil {
		t.Fatal("expected budget exceeded error")
	}
	if !errors.Is(err, cerrors.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}

	var budgetErr *engine.BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected BudgetExceededError, got %T", err)
	}
	if budgetErr.Allocated != 10 || budgetErr.Required != 50 {
		t.Fatalf("expected required=50 allocated=10, got required=%d allocated=%d",
			budgetErr.Required, budgetErr.Allocated)
	}
	if budgetErr.PartialText == "" {
		t.Fatal("expected partial text for debugging")
	}
}

func TestPackResolver_OptionalDegradesToEmpty(t *testing.T) {
	retriever := &stubRetriever{err: fmt.Errorf("backend unavailable")}
	policy := testPolicy(1, 0.0, engine.OverflowCompact)

	resolved, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb", Optional: true},
		Budget:   100,
		Policy:   &policy,
		Override: retriever,
	})
	if err != nil {
		t.Fatalf("optional pack must not fail: %v", err)
	}

	if resolved.Text != "" {
		t.Fatalf("expected empty text, got %q", resolved.Text)
	}
	if len(resolved.Warnings) == 0 {
		t.Fatal("expected degradation warning")
	}
}

func TestPackResolver_RetrieverErrorPropagates(t *testing.T) {
	retriever := &stubRetriever{err: fmt.Errorf("backend unavailable")}
	policy := testPolicy(1, 0.0, engine.OverflowCompact)

	_, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb"},
		Budget:   100,
		Policy:   &policy,
		Override: retriever,
	})
	if err == nil {
		t.Fatal("expected retriever error to propagate")
	}
	if !errors.Is(err, cerrors.ErrRetrieverFailed) {
		t.Fatalf("expected ErrRetrieverFailed, got %v", err)
	}
}

func TestPackResolver_UnknownRetriever(t *testing.T) {
	policy := testPolicy(1, 0.0, engine.OverflowCompact)

	_, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:   &engine.PackSpec{Retriever: "missing"},
		Budget: 100,
		Policy: &policy,
	})
	if err == nil {
		t.Fatal("expected error for unregistered retriever")
	}
	if !errors.Is(err, cerrors.ErrRetrieverNotFound) {
		t.Fatalf("expected ErrRetrieverNotFound, got %v", err)
	}
}

func TestPackResolver_EmptyPackIsValid(t *testing.T) {
	retriever := &stubRetriever{}
	policy := testPolicy(1, 0.0, engine.OverflowCompact)

	resolved, err := newTestResolver().Resolve(context.Background(), engine.ResolveRequest{
		Spec:     &engine.PackSpec{Retriever: "kb"},
		Budget:   100,
		Policy:   &policy,
		Override: retriever,
	})
	if err != nil {
		t.Fatalf("zero evidence must not fail: %v", err)
	}
	if resolved.Text != "" || resolved.Tokens != 0 {
		t.Fatalf("expected empty pack, got text=%q tokens=%d", resolved.Text, resolved.Tokens)
	}
}
