package kmerset

import (
	"os"
	"path/filepath"
	"testing"
)

type fakeIndex map[string]bool

func (f fakeIndex) Contains(kmer []byte) bool { return f[string(kmer)] }

func TestLoadAndContains(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "kmers.txt")
	if err := os.WriteFile(fn, []byte("AAAA\nAAAC\n\nAACC\nAAAA\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ks, err := Load(fn, 4)
	if err != nil {
		t.Fatal(err)
	}
	if ks.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ks.Len())
	}
	if !ks.Contains([]byte("AAAA")) {
		t.Errorf("expected AAAA to be present")
	}
	if ks.Contains([]byte("GGGG")) {
		t.Errorf("did not expect GGGG to be present")
	}
}

func TestBuildUniqueness(t *testing.T) {
	base := New(4)
	base.Add("AAAA")
	base.Add("CCCC")
	base.Add("GGGG")
	sub := fakeIndex{"CCCC": true}

	uniq := BuildUniqueness(base, sub)
	if uniq.Contains([]byte("CCCC")) {
		t.Errorf("uniqueness set must not contain subtract members")
	}
	if !uniq.Contains([]byte("AAAA")) || !uniq.Contains([]byte("GGGG")) {
		t.Errorf("uniqueness set dropped a member not in subtract")
	}
}
