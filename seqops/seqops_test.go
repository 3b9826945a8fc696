package seqops

import (
	"bytes"
	"testing"
)

func TestReverseComplement(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"AAAACCCC", "GGGGTTTT"},
		{"ACGT", "ACGT"},
		{"NNNN", "NNNN"},
		{"", ""},
	}
	for _, c := range cases {
		got := ReverseComplement([]byte(c.in))
		if string(got) != c.want {
			t.Errorf("ReverseComplement(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReverseComplementInvolution(t *testing.T) {
	for _, s := range []string{"ACGTACGTN", "TTTTGGGGCCCCAAAA", "N"} {
		got := ReverseComplement(ReverseComplement([]byte(s)))
		if string(got) != s {
			t.Errorf("ReverseComplement(ReverseComplement(%q)) = %q", s, got)
		}
	}
}

func TestPartition(t *testing.T) {
	cases := []struct {
		seq  string
		k    int
		want []string
	}{
		{"AAAACCCC", 4, []string{"AAAA", "AAAC", "AACC", "ACCC", "CCCC"}},
		{"AC", 4, nil},
		{"ACGT", 4, []string{"ACGT"}},
	}
	for _, c := range cases {
		got := Partition([]byte(c.seq), c.k)
		if len(got) != len(c.want) {
			t.Fatalf("Partition(%q, %d) len = %d, want %d", c.seq, c.k, len(got), len(c.want))
		}
		for i := range got {
			if !bytes.Equal(got[i], []byte(c.want[i])) {
				t.Errorf("Partition(%q, %d)[%d] = %q, want %q", c.seq, c.k, i, got[i], c.want[i])
			}
		}
	}
}

func TestReverseQual(t *testing.T) {
	got := ReverseQual([]byte("!!!+++"))
	if string(got) != "+++!!!" {
		t.Errorf("ReverseQual = %q", got)
	}
}
