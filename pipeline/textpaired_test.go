package pipeline

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/mudesheng/kmerfilt/decision"
	"github.com/mudesheng/kmerfilt/kmerset"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestRunTextPairedKeepsRoundTrip checks that a permissive kernel keeps
// every pair and that mate-2's output equals the reverse-complement of
// the in-memory (forward-oriented) mate-2.
func TestRunTextPairedKeepsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in1 := filepath.Join(dir, "in_1")
	in2 := filepath.Join(dir, "in_2")
	out1 := filepath.Join(dir, "out_1")
	out2 := filepath.Join(dir, "out_2")

	writeFile(t, in1, "@r1/1\nACGTACGT\n+\nIIIIIIII\n")
	writeFile(t, in2, "@r1/2\nTTTTACGT\n+\nJJJJJJJJ\n")

	kernel := decision.New(decision.Config{K: 4})
	stats, err := RunTextPaired(in1, in2, out1, out2, false, kernel, false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || stats.Kept != 1 {
		t.Fatalf("stats = %+v, want 1 total, 1 kept", stats)
	}

	got1, err := os.ReadFile(out1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got1) != "@r1/1\nACGTACGT\n+\nIIIIIIII\n" {
		t.Errorf("out1 = %q", got1)
	}
	got2, err := os.ReadFile(out2)
	if err != nil {
		t.Fatal(err)
	}
	if string(got2) != "@r1/2\nTTTTACGT\n+\nJJJJJJJJ\n" {
		t.Errorf("out2 = %q, want mate-2 round-tripped back to input orientation", got2)
	}
}

func TestRunTextPairedDropsBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	in1 := filepath.Join(dir, "in_1")
	in2 := filepath.Join(dir, "in_2")
	out1 := filepath.Join(dir, "out_1")
	out2 := filepath.Join(dir, "out_2")

	writeFile(t, in1, "@r1/1\nAAAA\n+\nIIII\n")
	writeFile(t, in2, "@r1/2\nCCCC\n+\nIIII\n")

	pos := kmerset.New(4)
	pos.Add("ACGT") // never matches -- forces positive fraction to 0
	kernel := decision.New(decision.Config{K: 4, Positive: pos, PositiveThreshold: 0.5})
	stats, err := RunTextPaired(in1, in2, out1, out2, false, kernel, false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Kept != 0 || stats.Dropped != 1 {
		t.Fatalf("stats = %+v, want 0 kept, 1 dropped", stats)
	}
}

// TestRunTextPairedMateIDMismatchAborts covers the mate-id mismatch
// abort path. Since it calls log.Fatalf, it is exercised in a
// subprocess the way the standard library tests its own os.Exit paths.
func TestRunTextPairedMateIDMismatchAborts(t *testing.T) {
	if os.Getenv("KMERFILT_S6_HELPER") == "1" {
		dir := t.TempDir()
		in1 := filepath.Join(dir, "in_1")
		in2 := filepath.Join(dir, "in_2")
		out1 := filepath.Join(dir, "out_1")
		out2 := filepath.Join(dir, "out_2")
		writeFile(t, in1, "@r1/1\nACGT\n+\nIIII\n")
		writeFile(t, in2, "@r2/2\nACGT\n+\nIIII\n")
		kernel := decision.New(decision.Config{K: 4})
		RunTextPaired(in1, in2, out1, out2, true, kernel, false)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestRunTextPairedMateIDMismatchAborts")
	cmd.Env = append(os.Environ(), "KMERFILT_S6_HELPER=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected the helper process to exit non-zero on mate-id mismatch")
	}
}
