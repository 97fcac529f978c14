package engine_test

import (
	"math/rand"
	"testing"

	"github.com/easyops/contextengine-go/pkg/engine"
)

func intPtr(n int) *int {
	return &n
}

func TestAllocator_SplitWeighted(t *testing.T) {
	allocator := engine.NewAllocator()

	tests := []struct {
		name  string
		total int
		slots []engine.Slot
		want  []int
	}{
		{
			name:  "equal weights",
			total: 100,
			slots: []engine.Slot{{Name: "a"}, {Name: "b"}},
			want:  []int{50, 50},
		},
		{
			name:  "proportional weights",
			total: 100,
			slots: []engine.Slot{{Name: "a", Weight: 3}, {Name: "b", Weight: 1}},
			want:  []int{75, 25},
		},
		{
			name:  "rounding remainder goes to first slot",
			total: 100,
			slots: []engine.Slot{{Name: "a"}, {Name: "b"}, {Name: "c"}},
			want:  []int{34, 33, 33},
		},
		{
			name:  "zero total",
			total: 0,
			slots: []engine.Slot{{Name: "a"}, {Name: "b"}},
			want:  []int{0, 0},
		},
		{
			name:  "single slot",
			total: 42,
			slots: []engine.Slot{{Name: "a", Weight: 2.5}},
			want:  []int{42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := allocator.SplitWeighted(tt.total, tt.slots)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d shares, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("share %d: expected %d, got %d", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestAllocator_SplitWeighted_Conservation(t *testing.T) {
	allocator := engine.NewAllocator()
	rng := rand.New(rand.NewSource(1))

	// Property: shares are non-negative and sum exactly to the total.
	for i := 0; i < 500; i++ {
		total := rng.Intn(10000)
		n := 1 + rng.Intn(8)
		slots := make([]engine.Slot, n)
		for j := range slots {
			slots[j] = engine.Slot{Weight: rng.Float64() * 10}
		}

		shares := allocator.SplitWeighted(total, slots)
		sum := 0
		for _, s := range shares {
			if s < 0 {
				t.Fatalf("negative share %d for total %d", s, total)
			}
			sum += s
		}
		if sum > total {
			t.Fatalf("shares sum %d exceeds total %d", sum, total)
		}
		if total > 0 && sum != total {
			t.Fatalf("shares sum %d does not conserve total %d", sum, total)
		}
	}
}

func TestAllocator_PartitionByPriority(t *testing.T) {
	allocator := engine.NewAllocator()

	slots := []engine.Slot{
		{Name: "w1"},
		{Name: "p2", Priority: intPtr(2)},
		{Name: "p1", Priority: intPtr(1)},
		{Name: "w2"},
		{Name: "p1b", Priority: intPtr(1)},
	}

	prioritized, weighted := allocator.PartitionByPriority(slots)

	// Priority order ascending, ties broken by declaration order.
	wantPrioritized := []string{"p1", "p1b", "p2"}
	if len(prioritized) != len(wantPrioritized) {
		t.Fatalf("expected %d prioritized slots, got %d", len(wantPrioritized), len(prioritized))
	}
	for i, idx := range prioritized {
		if slots[idx].Name != wantPrioritized[i] {
			t.Errorf("prioritized %d: expected %s, got %s", i, wantPrioritized[i], slots[idx].Name)
		}
	}

	wantWeighted := []string{"w1", "w2"}
	if len(weighted) != len(wantWeighted) {
		t.Fatalf("expected %d weighted slots, got %d", len(wantWeighted), len(weighted))
	}
	for i, idx := range weighted {
		if slots[idx].Name != wantWeighted[i] {
			t.Errorf("weighted %d: expected %s, got %s", i, wantWeighted[i], slots[idx].Name)
		}
	}
}
