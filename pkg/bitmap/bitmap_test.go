package bitmap

import (
	"reflect"
	"testing"
)

func TestSetGetClear(t *testing.T) {
	b := New()
	if b.Get(5) {
		t.Fatalf("bit 5 should start clear")
	}
	b.Set(5)
	if !b.Get(5) {
		t.Fatalf("bit 5 should be set")
	}
	b.Clear(5)
	if b.Get(5) {
		t.Fatalf("bit 5 should be clear after Clear")
	}
}

func TestSetAcrossWords(t *testing.T) {
	b := New()
	b.Set(0)
	b.Set(200)
	if !b.Get(0) || !b.Get(200) {
		t.Fatalf("expected bits 0 and 200 set")
	}
	if got := b.Bits(); !reflect.DeepEqual(got, []int{0, 200}) {
		t.Fatalf("Bits() = %v, want [0 200]", got)
	}
}

func TestUnion(t *testing.T) {
	a := New()
	a.Set(1)
	a.Set(64)
	b := New()
	b.Set(2)
	b.Set(130)

	a.Union(b)
	for _, bit := range []int{1, 2, 64, 130} {
		if !a.Get(bit) {
			t.Fatalf("expected bit %d set after union", bit)
		}
	}
}

func TestIntersects(t *testing.T) {
	a := New()
	a.Set(3)
	b := New()
	b.Set(4)
	if a.Intersects(b) {
		t.Fatalf("disjoint bitmaps should not intersect")
	}
	b.Set(3)
	if !a.Intersects(b) {
		t.Fatalf("bitmaps sharing bit 3 should intersect")
	}
}

func TestCountAndIsEmpty(t *testing.T) {
	b := New()
	if !b.IsEmpty() {
		t.Fatalf("fresh bitmap should be empty")
	}
	b.Set(1)
	b.Set(2)
	b.Set(100)
	if b.IsEmpty() {
		t.Fatalf("bitmap with set bits should not be empty")
	}
	if got := b.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
}

func TestString(t *testing.T) {
	b := New()
	if got := b.String(); got != "" {
		t.Fatalf("empty bitmap String() = %q, want empty", got)
	}
	b.Set(1)
	b.Set(3)
	b.Set(10)
	if got, want := b.String(), "1 3 10"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
