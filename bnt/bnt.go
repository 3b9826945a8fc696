// Package bnt holds the nucleotide alphabet tables and 2-bit packing
// constants shared by seqops and kmerindex.
package bnt

// 2-bit base codes, the same ordering the de Bruijn binary format packs.
const (
	A = 0
	C = 1
	G = 2
	T = 3
	N = 4
)

// Base2Bnt maps an ASCII base to its 2-bit code. N and any unrecognized
// byte map to N's reserved slot so that packing never panics on messy
// input; callers that need to reject invalid bases check Base2Bnt[b] >= N
// themselves.
var Base2Bnt [256]byte

// Bnt2Base is the inverse of Base2Bnt for the four real bases.
var Bnt2Base = [4]byte{'A', 'C', 'G', 'T'}

// BntRev is the total complement mapping over ASCII bases: A<->T, C<->G,
// N->N, anything else passed through unchanged. Bases outside
// {A,C,G,T,N} are already-invalid input, so pass-through cannot hide a
// real complement.
var BntRev [256]byte

func init() {
	for i := range Base2Bnt {
		Base2Bnt[i] = N
	}
	Base2Bnt['A'], Base2Bnt['a'] = A, A
	Base2Bnt['C'], Base2Bnt['c'] = C, C
	Base2Bnt['G'], Base2Bnt['g'] = G, G
	Base2Bnt['T'], Base2Bnt['t'] = T, T

	for i := range BntRev {
		BntRev[i] = byte(i)
	}
	BntRev['A'], BntRev['T'] = 'T', 'A'
	BntRev['a'], BntRev['t'] = 't', 'a'
	BntRev['C'], BntRev['G'] = 'G', 'C'
	BntRev['c'], BntRev['g'] = 'g', 'c'
	BntRev['N'], BntRev['n'] = 'N', 'n'
}

// NumBaseInUint64 is how many 2-bit bases a single packed uint64 word holds.
const NumBaseInUint64 = 32

// NumBitsInBase is the width of one packed base.
const NumBitsInBase = 2

// BaseMask isolates the low 2 bits of a packed word.
const BaseMask = 0x3
