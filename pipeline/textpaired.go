// Package pipeline wires format, decision, and (for the
// aligned-container mode only) pairassembler together into the two
// runnable modes: text-paired and aligned-container. Text-paired mode
// pairs mates by lockstep record order; aligned-container mode
// reassembles mates that arrive out of order in a BAM stream via
// pairassembler.
package pipeline

import (
	"io"
	"log"
	"os"

	"github.com/mudesheng/kmerfilt/decision"
	"github.com/mudesheng/kmerfilt/format"
	"github.com/mudesheng/kmerfilt/internal/progress"
	"github.com/mudesheng/kmerfilt/seqops"
)

// TextPairedStats reports the outcome of a text-paired run, returned
// so callers (tests, the CLI) can report counters without scraping
// log output.
type TextPairedStats struct {
	Kept    int
	Dropped int
	Total   int
}

// RunTextPaired drives the single-threaded text-paired path: read
// mate-1 and mate-2 files in lockstep, reverse-complement mate-2 on
// ingest, decide each pair, and (unless countOnly) write kept pairs
// back out with mate-2 restored to its on-disk orientation.
//
// Uses lockstep two-stream reading with length/id-mismatch fatal
// checks, matching read names by stripping their /1, /2 suffix.
func RunTextPaired(in1, in2, out1, out2 string, countOnly bool, kernel *decision.Kernel, bar bool) (TextPairedStats, error) {
	r1, fp1, err := format.Open(in1)
	if err != nil {
		return TextPairedStats{}, err
	}
	defer fp1.Close()
	r2, fp2, err := format.Open(in2)
	if err != nil {
		return TextPairedStats{}, err
	}
	defer fp2.Close()

	var w1, w2 *format.Writer
	var ofp1, ofp2 *os.File
	if !countOnly {
		w1, ofp1, err = format.Create(out1)
		if err != nil {
			return TextPairedStats{}, err
		}
		defer ofp1.Close()
		w2, ofp2, err = format.Create(out2)
		if err != nil {
			return TextPairedStats{}, err
		}
		defer ofp2.Close()
	}

	var counter *progress.Counter
	if bar {
		counter = progress.NewCounter(-1, "filter")
		defer counter.Finish()
	}

	var stats TextPairedStats
	for {
		rec1, err1 := r1.Next()
		rec2, err2 := r2.Next()
		if err1 == io.EOF || err2 == io.EOF {
			if err1 != err2 {
				log.Printf("[pipeline.RunTextPaired] stream length mismatch: %s at EOF=%v, %s at EOF=%v\n", in1, err1 == io.EOF, in2, err2 == io.EOF)
			}
			break
		}

		key1, mate1, ok1 := format.StripMateSuffix(rec1.ID)
		key2, _, ok2 := format.StripMateSuffix(rec2.ID)
		if !ok1 || !ok2 || mate1 != 1 || key1 != key2 {
			log.Printf("[pipeline.RunTextPaired] mate id mismatch: %q (file1) vs %q (file2)\n", rec1.ID, rec2.ID)
			log.Fatalf("[pipeline.RunTextPaired] aborting on mate-id mismatch\n")
		}

		fwdMate2Seq := seqops.ReverseComplement(rec2.Seq)
		fwdMate2Qual := seqops.ReverseQual(rec2.Qual)

		stats.Total++
		keep := kernel.Decide(rec1.Seq, fwdMate2Seq)
		if counter != nil {
			counter.Increment()
		}
		if !keep {
			stats.Dropped++
			continue
		}
		stats.Kept++
		if countOnly {
			continue
		}

		if err := w1.Write(rec1); err != nil {
			return stats, err
		}
		outRec2 := format.Record{
			ID:   rec2.ID,
			Seq:  seqops.ReverseComplement(fwdMate2Seq),
			Qual: seqops.ReverseQual(fwdMate2Qual),
		}
		if err := w2.Write(outRec2); err != nil {
			return stats, err
		}
	}

	if !countOnly {
		if err := w1.Flush(); err != nil {
			return stats, err
		}
		if err := w2.Flush(); err != nil {
			return stats, err
		}
	}
	log.Printf("[pipeline.RunTextPaired] total=%d kept=%d dropped=%d\n", stats.Total, stats.Kept, stats.Dropped)
	return stats, nil
}
