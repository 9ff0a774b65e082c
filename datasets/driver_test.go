package datasets

import (
	"testing"
)

func TestIndexDriver_SequentialPlan(t *testing.T) {
	d := NewIndexDriver(8, false, 1)
	batches := d.Plan(20)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	wantSizes := []int{8, 8, 4}
	next := 0
	for i, batch := range batches {
		if len(batch) != wantSizes[i] {
			t.Fatalf("batch %d has size %d, want %d", i, len(batch), wantSizes[i])
		}
		for _, idx := range batch {
			if idx != next {
				t.Fatalf("expected sequential index %d, got %d", next, idx)
			}
			next++
		}
	}
}

func TestIndexDriver_DropLast(t *testing.T) {
	d := NewIndexDriver(8, false, 1)
	d.DropLast = true
	batches := d.Plan(20)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches with DropLast, got %d", len(batches))
	}
}

func TestIndexDriver_ShuffleCoversAllIndices(t *testing.T) {
	d := NewIndexDriver(4, true, 7)
	batches := d.Plan(10)
	seen := make(map[int]int)
	total := 0
	for _, batch := range batches {
		for _, idx := range batch {
			seen[idx]++
			total++
		}
	}
	if total != 10 {
		t.Fatalf("plan covers %d indices, want 10", total)
	}
	for idx := 0; idx < 10; idx++ {
		if seen[idx] != 1 {
			t.Fatalf("index %d appears %d times, want exactly once", idx, seen[idx])
		}
	}
}

func TestIndexDriver_ShuffleDeterministicPerSeed(t *testing.T) {
	flatten := func(batches [][]int) []int {
		var out []int
		for _, b := range batches {
			out = append(out, b...)
		}
		return out
	}
	p1 := flatten(NewIndexDriver(4, true, 99).Plan(16))
	p2 := flatten(NewIndexDriver(4, true, 99).Plan(16))
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("same-seed plans differ at %d: %v vs %v", i, p1, p2)
		}
	}
}

func TestIndexDriver_ReplansEachEpoch(t *testing.T) {
	d := NewIndexDriver(4, true, 3)
	p1 := d.Plan(64)
	p2 := d.Plan(64)
	same := true
	for i := range p1 {
		for j := range p1[i] {
			if p1[i][j] != p2[i][j] {
				same = false
			}
		}
	}
	if same {
		t.Fatalf("consecutive epoch plans are identical; expected a fresh shuffle")
	}
}
