package retrievers_test

import (
	"context"
	"testing"

	"github.com/easyops/contextengine-go/pkg/engine"
	"github.com/easyops/contextengine-go/pkg/retrievers"
)

func corpus() []retrievers.Document {
	return []retrievers.Document{
		{ID: "d1", Text: "Go channels and goroutines"},
		{ID: "d2", Text: "Python generators"},
		{ID: "d3", Text: "Buffered channels in Go"},
		{ID: "d4", Text: "Rust ownership"},
		{ID: "d5", Text: "Channel select patterns"},
	}
}

func TestScanRetriever_Match(t *testing.T) {
	retriever := retrievers.NewScanRetriever(corpus())

	pack, err := retriever.Retrieve(context.Background(), engine.RetrieverRequest{
		Query: "CHANNEL",
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pack.Blocks) != 3 {
		t.Fatalf("expected 3 case-insensitive matches, got %d", len(pack.Blocks))
	}
	wantIDs := []string{"d1", "d3", "d5"}
	for i, block := range pack.Blocks {
		if block.EvidenceItemID != wantIDs[i] {
			t.Errorf("block %d: expected id %q, got %q", i, wantIDs[i], block.EvidenceItemID)
		}
	}
}

func TestScanRetriever_Pagination(t *testing.T) {
	retriever := retrievers.NewScanRetriever(corpus())
	ctx := context.Background()

	first, err := retriever.Retrieve(ctx, engine.RetrieverRequest{Query: "channel", Offset: 0, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Blocks) != 2 {
		t.Fatalf("expected 2 blocks on first page, got %d", len(first.Blocks))
	}

	second, err := retriever.Retrieve(ctx, engine.RetrieverRequest{Query: "channel", Offset: 2, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Blocks) != 1 {
		t.Fatalf("expected 1 block on second page, got %d", len(second.Blocks))
	}
	if second.Blocks[0].EvidenceItemID != "d5" {
		t.Errorf("expected d5 on second page, got %q", second.Blocks[0].EvidenceItemID)
	}

	third, err := retriever.Retrieve(ctx, engine.RetrieverRequest{Query: "channel", Offset: 4, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(third.Blocks) != 0 {
		t.Fatalf("expected empty page past the end, got %d blocks", len(third.Blocks))
	}

	if !retriever.SupportsPagination() {
		t.Fatal("scan retriever must declare pagination support")
	}
}

func TestScanRetriever_EmptyQueryMatchesAll(t *testing.T) {
	retriever := retrievers.NewScanRetriever(corpus())

	pack, err := retriever.Retrieve(context.Background(), engine.RetrieverRequest{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pack.Blocks) != 5 {
		t.Fatalf("expected all 5 documents, got %d", len(pack.Blocks))
	}
}

func TestScanRetriever_Add(t *testing.T) {
	retriever := retrievers.NewScanRetriever(nil)
	retriever.Add(retrievers.Document{ID: "d1", Text: "late addition"})

	pack, err := retriever.Retrieve(context.Background(), engine.RetrieverRequest{Query: "late", Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pack.Blocks) != 1 || pack.Blocks[0].EvidenceItemID != "d1" {
		t.Fatalf("expected added document, got %+v", pack.Blocks)
	}
}
