package pairassembler

import "testing"

func TestPutCompletesOnSecondMate(t *testing.T) {
	tb := NewTable()
	_, complete, err := tb.Put("r1", 1, Record{Name: "r1/1", Seq: []byte("ACGT")})
	if err != nil {
		t.Fatal(err)
	}
	if complete {
		t.Fatalf("pair should not be complete after one mate")
	}
	if tb.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tb.Len())
	}
	p, complete, err := tb.Put("r1", 2, Record{Name: "r1/2", Seq: []byte("TTTT")})
	if err != nil {
		t.Fatal(err)
	}
	if !complete {
		t.Fatalf("pair should be complete after both mates")
	}
	if !p.Complete() {
		t.Fatalf("returned pair reports incomplete")
	}
	if tb.Len() != 0 {
		t.Fatalf("completed pair should be removed from the table, Len() = %d", tb.Len())
	}
}

func TestPutConflictIsHardError(t *testing.T) {
	tb := NewTable()
	if _, _, err := tb.Put("r1", 1, Record{Name: "r1/1"}); err != nil {
		t.Fatal(err)
	}
	_, _, err := tb.Put("r1", 1, Record{Name: "other/1"})
	if err == nil {
		t.Fatalf("expected a ConsistencyError on mismatching re-fill")
	}
	if _, ok := err.(*ConsistencyError); !ok {
		t.Fatalf("expected *ConsistencyError, got %T", err)
	}
}

func TestDrainHalves(t *testing.T) {
	tb := NewTable()
	tb.Put("r1", 1, Record{Name: "r1/1"})
	tb.Put("r2", 1, Record{Name: "r2/1"})
	halves := tb.DrainHalves()
	if len(halves) != 2 {
		t.Fatalf("DrainHalves() len = %d, want 2", len(halves))
	}
	if tb.Len() != 0 {
		t.Fatalf("table should be empty after draining")
	}
}

func TestAssemblerGlobalDrain(t *testing.T) {
	a := NewAssembler()
	defer a.Close()

	local1 := NewTable()
	local1.Put("x", 1, Record{Name: "x/1"})
	local2 := NewTable()
	local2.Put("x", 2, Record{Name: "x/2"})

	completed, err := a.Drain(local1.DrainHalves())
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 0 {
		t.Fatalf("first drain should not complete anything, got %d", len(completed))
	}
	if a.Dangling() != 1 {
		t.Fatalf("Dangling() = %d, want 1", a.Dangling())
	}

	completed, err = a.Drain(local2.DrainHalves())
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 1 {
		t.Fatalf("second drain should complete the pair, got %d", len(completed))
	}
	if a.Dangling() != 0 {
		t.Fatalf("Dangling() = %d, want 0 after completion", a.Dangling())
	}
}
