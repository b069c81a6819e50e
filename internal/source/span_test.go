package source

import "testing"

func TestSpanBasics(t *testing.T) {
	s := Span{File: 1, Start: 4, End: 9}
	if s.Empty() {
		t.Fatalf("expected non-empty span")
	}
	if s.Len() != 5 {
		t.Fatalf("expected length 5, got %d", s.Len())
	}
	if got := s.String(); got != "1:4-9" {
		t.Fatalf("expected %q, got %q", "1:4-9", got)
	}
	if !s.Contains(4) || s.Contains(9) {
		t.Fatalf("expected half-open containment [4, 9)")
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 9}
	b := Span{File: 1, Start: 2, End: 6}
	got := a.Cover(b)
	if got.Start != 2 || got.End != 9 {
		t.Fatalf("expected cover 2-9, got %d-%d", got.Start, got.End)
	}

	other := Span{File: 2, Start: 0, End: 100}
	got = a.Cover(other)
	if got != a {
		t.Fatalf("expected cross-file cover to be a no-op")
	}
}
