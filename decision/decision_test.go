package decision

import "testing"

type setFunc func(kmer []byte) bool

func (f setFunc) Contains(kmer []byte) bool { return f(kmer) }

func members(ss ...string) setFunc {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return setFunc(func(kmer []byte) bool { return m[string(kmer)] })
}

// The positive fractional test pools hits and k-mer counts across both
// mates before dividing: a pair whose pooled fraction exactly clears
// the threshold is kept.
func TestDecidePositiveFractionClearsThresholdKeeps(t *testing.T) {
	k := New(Config{
		Positive:          members("AAAA", "AAAC", "AACC"),
		K:                 4,
		PositiveThreshold: 0.3,
	})
	// K1 (AAAACCCC) contributes 3 forward hits, K2 (GGGGTTTT) contributes
	// 3 reverse-complement hits, both against a pooled total of 10
	// k-mers: f = r = 0.3, clearing a 0.3 threshold via the disjunction.
	if !k.Decide([]byte("AAAACCCC"), []byte("GGGGTTTT")) {
		t.Errorf("expected keep")
	}
}

// The same pair against a stricter threshold falls short of the pooled
// fraction and is dropped, since pooling divides by the combined
// k-mer count of both mates rather than either mate's own count.
func TestDecidePositiveFractionPooledBelowStrictThresholdDrops(t *testing.T) {
	k := New(Config{
		Positive:          members("AAAA", "AAAC", "AACC"),
		K:                 4,
		PositiveThreshold: 0.5,
	})
	if k.Decide([]byte("AAAACCCC"), []byte("GGGGTTTT")) {
		t.Errorf("expected drop: pooled fraction is 0.3, below a 0.5 threshold")
	}
}

// A pair whose forward k-mers rarely hit the positive set falls short
// of a strict fractional threshold and is dropped.
func TestDecidePositiveFractionBelowThresholdDrops(t *testing.T) {
	k := New(Config{
		Positive:          members("AAAA"),
		K:                 4,
		PositiveThreshold: 0.9,
	})
	if k.Decide([]byte("AAAACCCC"), []byte("GGGGTTTT")) {
		t.Errorf("expected drop")
	}
}

// Any hit against the negative index fails a zero negative threshold.
func TestDecideAnyNegativeHitFailsZeroThreshold(t *testing.T) {
	k := New(Config{
		Negative:          members("ACGT"),
		K:                 4,
		NegativeThreshold: 0.0,
	})
	if k.Decide([]byte("ACGTACGT"), []byte("TTTTTTTT")) {
		t.Errorf("expected drop: any negative hit must fail at threshold 0")
	}
}

// With the positive set empty and the positive-unique rescue enabled,
// an all-N pair has no unique hits available and is dropped.
func TestDecidePositiveUniqueRescueNoHitsDrops(t *testing.T) {
	k := New(Config{
		Positive:                members(),
		K:                       4,
		PositiveThreshold:       0.5,
		PositiveUnique:          true,
		PositiveUniqueThreshold: 1,
	})
	if k.Decide([]byte("NNNNNNNN"), []byte("NNNNNNNN")) {
		t.Errorf("expected drop: no unique hits available")
	}
}

func TestDecidePositiveUniqueSymmetric(t *testing.T) {
	uniq := members("AAAA")
	cfgQuirk := Config{
		Positive:                members(),
		K:                       4,
		PositiveThreshold:       0.9,
		PositiveUnique:          true,
		PositiveUniqueThreshold: 100,
		Unique:                  uniq,
	}
	// reverse-unique count will be 1 (AAAA's RC TTTT reverse-complements
	// back to AAAA when matched against r2's forward windows); under the
	// preserved quirk this is compared to PositiveThreshold and passes
	// (1 >= 0.5 below), while under the symmetric rule it is compared to
	// PositiveUniqueThreshold (100) and fails, which tells the two apart.
	cfgQuirk.PositiveThreshold = 0.5
	quirk := New(cfgQuirk)
	if !quirk.Decide([]byte("CCCCCCCC"), []byte("TTTTGGGG")) {
		t.Errorf("quirk path: expected keep via reverse-unique >= PositiveThreshold")
	}

	cfgSym := cfgQuirk
	cfgSym.PositiveUniqueSymmetric = true
	sym := New(cfgSym)
	if sym.Decide([]byte("CCCCCCCC"), []byte("TTTTGGGG")) {
		t.Errorf("symmetric path: expected drop, reverse-unique count (1) < PositiveUniqueThreshold (100)")
	}
}

func TestDecideVacuousPositive(t *testing.T) {
	k := New(Config{K: 4, NegativeThreshold: 1})
	if !k.Decide([]byte("ACGT"), []byte("ACGT")) {
		t.Errorf("absent positive filter should be vacuously true")
	}
}

func TestDecideEmptyReadsBelowK(t *testing.T) {
	k := New(Config{
		Positive:          members("AAAA"),
		K:                 4,
		PositiveThreshold: 0.1,
	})
	if k.Decide([]byte("AC"), []byte("AC")) {
		t.Errorf("reads shorter than k should yield empty k-mer sets and fraction 0")
	}
}
