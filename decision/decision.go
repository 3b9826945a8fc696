// Package decision implements the k-mer decision kernel: scoring a
// complete read pair against a positive set, a negative index, and an
// optional uniqueness rescue. The kernel is pure: identical inputs
// yield identical outputs, and no call mutates shared state.
package decision

import "github.com/mudesheng/kmerfilt/seqops"

// PositiveSet answers exact membership for the positive inclusion set.
type PositiveSet interface {
	Contains(kmer []byte) bool
}

// NegativeIndex answers exact membership for the negative exclusion
// index (kmerindex.KmerIndex satisfies this).
type NegativeIndex interface {
	Contains(kmer []byte) bool
}

// UniquenessSet answers exact membership for the uniqueness rescue set.
type UniquenessSet interface {
	Contains(kmer []byte) bool
}

// Config enumerates the decision kernel's configuration. Documented
// defaults: PositiveUniqueThreshold = 10, NegativePreserveUniqueThreshold = 10.
type Config struct {
	Positive PositiveSet   // nil => positive test is vacuously true
	Negative NegativeIndex // nil => negative test is vacuously true
	Unique   UniquenessSet // required iff PositiveUnique or NegativePreserveUnique

	K int

	PositiveThreshold float64
	NegativeThreshold float64

	PositiveUnique          bool
	PositiveUniqueThreshold int

	NegativePreserveUnique          bool
	NegativePreserveUniqueThreshold int

	// PositiveUniqueSymmetric switches the positive-unique reverse-count
	// comparison from the documented as-written behavior (compare against
	// PositiveThreshold, a float) to the symmetric rule (compare against
	// PositiveUniqueThreshold, an int). Default false preserves the
	// as-written behavior.
	PositiveUniqueSymmetric bool
}

// Kernel evaluates pairs against a fixed Config.
type Kernel struct {
	cfg Config
}

// New returns a Kernel bound to cfg. cfg is copied; threshold defaults
// must already be applied by the caller (config.Options owns that).
func New(cfg Config) *Kernel {
	return &Kernel{cfg: cfg}
}

// Decide scores one pair through the positive test, then (if the
// positive test passes and a negative index is configured) the
// negative test.
//
// The positive fractional test pools both mates over T=|K1|+|K2|:
// f = (fwdOK1+fwdOK2)/T, r = (revOK1+revOK2)/T, pass iff f or r clears
// PositiveThreshold. This matches the original C++ implementation's
// forward_combined_optim/reverse_combined_optim, which sums hits and
// totals across both mates before dividing.
func (k *Kernel) Decide(seq1, seq2 []byte) bool {
	K1 := seqops.Partition(seq1, k.cfg.K)
	K2 := seqops.Partition(seq2, k.cfg.K)
	total := len(K1) + len(K2)

	fwdUnique, revUnique := k.countUnique(K1, K2)

	positive := k.positivePass(K1, K2, total, fwdUnique, revUnique)
	if !positive {
		return false
	}
	if k.cfg.Negative == nil {
		return true
	}
	return k.negativePass(K1, K2, total, fwdUnique, revUnique)
}

func (k *Kernel) positivePass(K1, K2 [][]byte, total, fwdUnique, revUnique int) bool {
	if k.cfg.Positive == nil {
		return true
	}
	fwdOK := countMembers(k.cfg.Positive, K1) + countMembers(k.cfg.Positive, K2)
	revOK := countReverseMembers(k.cfg.Positive, K1) + countReverseMembers(k.cfg.Positive, K2)
	best := maxFraction(fraction(fwdOK, total, 0), fraction(revOK, total, 0))
	if best >= k.cfg.PositiveThreshold {
		return true
	}
	if !k.cfg.PositiveUnique {
		return false
	}
	if fwdUnique >= k.cfg.PositiveUniqueThreshold {
		return true
	}
	// As-written behavior: the reverse-unique count is compared against
	// PositiveThreshold (a float in [0,1]) rather than
	// PositiveUniqueThreshold (an int), unless the caller opted into the
	// symmetric rule.
	if k.cfg.PositiveUniqueSymmetric {
		return float64(revUnique) >= float64(k.cfg.PositiveUniqueThreshold)
	}
	return float64(revUnique) >= k.cfg.PositiveThreshold
}

func (k *Kernel) negativePass(K1, K2 [][]byte, total, fwdUnique, revUnique int) bool {
	nOK := countMembers(k.cfg.Negative, K1) + countMembers(k.cfg.Negative, K2)
	n := fraction(nOK, total, 1)
	if n <= k.cfg.NegativeThreshold {
		return true
	}
	if !k.cfg.NegativePreserveUnique {
		return false
	}
	return fwdUnique >= k.cfg.NegativePreserveUniqueThreshold || revUnique >= k.cfg.NegativePreserveUniqueThreshold
}

func (k *Kernel) countUnique(K1, K2 [][]byte) (fwd, rev int) {
	if k.cfg.Unique == nil {
		return 0, 0
	}
	fwd = countMembers(k.cfg.Unique, K1) + countMembers(k.cfg.Unique, K2)
	rev = countReverseMembers(k.cfg.Unique, K1) + countReverseMembers(k.cfg.Unique, K2)
	return fwd, rev
}

func countMembers(idx interface{ Contains([]byte) bool }, kmers [][]byte) int {
	n := 0
	for _, km := range kmers {
		if idx.Contains(km) {
			n++
		}
	}
	return n
}

func countReverseMembers(idx interface{ Contains([]byte) bool }, kmers [][]byte) int {
	n := 0
	for _, km := range kmers {
		if idx.Contains(seqops.ReverseComplement(km)) {
			n++
		}
	}
	return n
}

// fraction returns num/den, or whenZero when den is zero: division by
// zero yields 0 for the positive fraction, and 1 for the negative
// fraction (an empty pair fails the negative-exclusion test unless
// NegativeThreshold is 1).
func fraction(num, den int, whenZero float64) float64 {
	if den == 0 {
		return whenZero
	}
	return float64(num) / float64(den)
}

func maxFraction(fs ...float64) float64 {
	best := fs[0]
	for _, f := range fs[1:] {
		if f > best {
			best = f
		}
	}
	return best
}
