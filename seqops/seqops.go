// Package seqops implements the sequence-level primitives the decision
// kernel and pair assembler build on: reverse-complementing a read and
// partitioning it into k-mers.
package seqops

import "github.com/mudesheng/kmerfilt/bnt"

// ReverseComplement returns the reverse complement of seq. It does not
// mutate seq. Length is preserved; any byte maps through bnt.BntRev, so
// N maps to N and anything outside {A,C,G,T,N} passes through unchanged.
func ReverseComplement(seq []byte) []byte {
	rc := make([]byte, len(seq))
	last := len(seq) - 1
	for i, b := range seq {
		rc[last-i] = bnt.BntRev[b]
	}
	return rc
}

// Complement returns the complement of a single base without reversing.
func Complement(b byte) byte {
	return bnt.BntRev[b]
}

// ReverseQual reverses a quality string without complementing it, used to
// restore mate-2 qualities to the orientation a mate-2 fastq record was
// stored in.
func ReverseQual(qual []byte) []byte {
	rq := make([]byte, len(qual))
	last := len(qual) - 1
	for i, q := range qual {
		rq[last-i] = q
	}
	return rq
}

// Partition returns the ordered sequence of all length-k contiguous
// substrings of seq. Count is max(0, len(seq)-k+1); windows are not
// filtered for ambiguous bases here -- the decision kernel treats a
// window with an N as simply failing every membership test it is checked
// against, since k-mer comparison is always exact-identity.
func Partition(seq []byte, k int) [][]byte {
	if k <= 0 || len(seq) < k {
		return nil
	}
	n := len(seq) - k + 1
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = seq[i : i+k]
	}
	return out
}
