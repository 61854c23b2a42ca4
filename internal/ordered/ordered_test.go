package ordered

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestInsertIndex_EmptyList(t *testing.T) {
	if got := InsertIndex(5, nil, cmp.Compare[int]); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestFindIndex_EmptyList(t *testing.T) {
	if got := FindIndex(5, []int{}, cmp.Compare[int]); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}

func TestInsertIndex_Positions(t *testing.T) {
	list := []int{10, 20, 30, 40}
	tests := []struct {
		item int
		want int
	}{
		{5, 0},
		{10, 0},
		{15, 1},
		{25, 2},
		{40, 3},
		{45, 4},
	}
	for _, tt := range tests {
		if got := InsertIndex(tt.item, list, cmp.Compare[int]); got != tt.want {
			t.Errorf("InsertIndex(%d): expected %d, got %d", tt.item, tt.want, got)
		}
	}
}

func TestInsertIndex_TieBreaksTowardMidpoint(t *testing.T) {
	list := []int{1, 2, 2, 2, 2, 3}
	// First pivot is index 3, which already compares equal.
	if got := InsertIndex(2, list, cmp.Compare[int]); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestFindIndex_Positions(t *testing.T) {
	list := []int{10, 20, 30, 40, 50}
	for i, v := range list {
		if got := FindIndex(v, list, cmp.Compare[int]); got != i {
			t.Errorf("FindIndex(%d): expected %d, got %d", v, i, got)
		}
	}
	for _, missing := range []int{0, 15, 35, 60} {
		if got := FindIndex(missing, list, cmp.Compare[int]); got != -1 {
			t.Errorf("FindIndex(%d): expected -1, got %d", missing, got)
		}
	}
}

func TestInsertIndex_KeepsListSorted(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	var list []int
	for range 500 {
		v := r.IntN(100)
		i := InsertIndex(v, list, cmp.Compare[int])
		list = slices.Insert(list, i, v)
	}
	if !slices.IsSorted(list) {
		t.Fatalf("expected sorted list after ordered inserts")
	}
	if len(list) != 500 {
		t.Fatalf("expected 500 items, got %d", len(list))
	}
}
