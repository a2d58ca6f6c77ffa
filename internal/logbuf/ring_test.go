package logbuf

import (
	"fmt"
	"testing"
)

func TestRing_AppendAndLines(t *testing.T) {
	r := NewRing(3)

	r.Append("one")
	r.Append("two")

	lines := r.Lines()
	if len(lines) != 2 {
		t.Fatalf("Lines length = %d, want 2", len(lines))
	}
	if lines[0] != "one" || lines[1] != "two" {
		t.Errorf("Lines = %v, want [one two]", lines)
	}
}

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing(1000)

	for i := 0; i < 1500; i++ {
		r.Append(fmt.Sprintf("line %d", i))
	}

	if got := r.Len(); got != 1000 {
		t.Fatalf("Len = %d, want 1000", got)
	}

	lines := r.Lines()
	if lines[0] != "line 500" {
		t.Errorf("first line = %q, want %q", lines[0], "line 500")
	}
	if lines[len(lines)-1] != "line 1499" {
		t.Errorf("last line = %q, want %q", lines[len(lines)-1], "line 1499")
	}
}

func TestRing_Clear(t *testing.T) {
	r := NewRing(4)
	r.Append("one")
	r.Append("two")

	r.Clear()

	if got := r.Len(); got != 0 {
		t.Errorf("Len = %d, want 0 after Clear", got)
	}

	r.Append("three")
	lines := r.Lines()
	if len(lines) != 1 || lines[0] != "three" {
		t.Errorf("Lines = %v, want [three]", lines)
	}
}

func TestRing_ZeroCapacityUsesDefault(t *testing.T) {
	r := NewRing(0)

	for i := 0; i < DefaultCapacity+10; i++ {
		r.Append("x")
	}

	if got := r.Len(); got != DefaultCapacity {
		t.Errorf("Len = %d, want %d", got, DefaultCapacity)
	}
}
