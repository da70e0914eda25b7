package recommend

import "testing"

func TestSample_DistinctInRange(t *testing.T) {
	s := NewSeededSampler(42)
	out := s.Sample(100, 20)
	if len(out) != 20 {
		t.Fatalf("expected 20 indexes, got %d", len(out))
	}
	seen := make(map[int]bool, len(out))
	for _, i := range out {
		if i < 0 || i >= 100 {
			t.Fatalf("index %d out of range", i)
		}
		if seen[i] {
			t.Fatalf("duplicate index %d", i)
		}
		seen[i] = true
	}
}

func TestSample_KExceedsPopulation(t *testing.T) {
	s := NewSeededSampler(1)
	out := s.Sample(5, 20)
	if len(out) != 5 {
		t.Fatalf("expected whole population of 5, got %d", len(out))
	}
}

func TestSample_EmptyPopulation(t *testing.T) {
	s := NewSeededSampler(1)
	if out := s.Sample(0, 20); out != nil {
		t.Fatalf("expected nil for empty population, got %v", out)
	}
	if out := s.Sample(10, 0); out != nil {
		t.Fatalf("expected nil for k=0, got %v", out)
	}
}

func TestSample_Deterministic(t *testing.T) {
	a := NewSeededSampler(7).Sample(50, 10)
	b := NewSeededSampler(7).Sample(50, 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("expected identical samples for identical seeds")
		}
	}
}
