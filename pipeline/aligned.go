package pipeline

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"github.com/mudesheng/kmerfilt/decision"
	"github.com/mudesheng/kmerfilt/format"
	"github.com/mudesheng/kmerfilt/pairassembler"
	"github.com/mudesheng/kmerfilt/seqops"
)

// Region is one contiguous genomic interval a worker seeks to and
// scans.
type Region struct {
	RefName string
	Start   int // 0-based, inclusive
	End     int // 0-based, exclusive
}

// Alignment is the minimal per-record shape a source must supply: name,
// is-paired, is-first-mate, is-reverse-strand, query bases, qualities.
// Seq and Qual are already restored to the read's original (unmapped)
// orientation.
type Alignment struct {
	Name      string
	Paired    bool
	FirstMate bool
	Reverse   bool
	Seq       []byte
	Qual      []byte
}

// AlignmentReader streams Alignments from one region. io.EOF ends the
// region.
type AlignmentReader interface {
	Next() (Alignment, error)
	Close() error
}

// AlignmentSource opens one reader per worker, seeked to a region; kept
// as an interface so the worker pool below is independent of
// biogo/hts/bam and directly testable.
type AlignmentSource interface {
	OpenRegion(r Region) (AlignmentReader, error)
}

// BamSource implements AlignmentSource over an indexed BAM file: SAM
// flag filtering follows the same rules as sequential bam.Reader
// consumption, generalized from whole-file scanning to an index-seek
// per region so the worker pool can process regions independently.
type BamSource struct {
	path    string
	idxPath string
}

// NewBamSource returns a source over an indexed BAM file at path,
// whose index is expected at path+".bai".
func NewBamSource(path string) *BamSource {
	return &BamSource{path: path, idxPath: path + ".bai"}
}

type bamRegionReader struct {
	fp  *os.File
	r   *bam.Reader
	end int
	ref string
}

// OpenRegion opens an independent file handle and bam.Reader, seeks to
// the first chunk covering the region via the BAI index, and returns a
// reader that stops at region end.
func (s *BamSource) OpenRegion(reg Region) (AlignmentReader, error) {
	idxFp, err := os.Open(s.idxPath)
	if err != nil {
		return nil, fmt.Errorf("[pipeline.BamSource.OpenRegion] open index %s: %w", s.idxPath, err)
	}
	idx, err := bam.ReadIndex(idxFp)
	idxFp.Close()
	if err != nil {
		return nil, fmt.Errorf("[pipeline.BamSource.OpenRegion] read index %s: %w", s.idxPath, err)
	}

	fp, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("[pipeline.BamSource.OpenRegion] open %s: %w", s.path, err)
	}
	r, err := bam.NewReader(fp, 1)
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("[pipeline.BamSource.OpenRegion] bam.NewReader %s: %w", s.path, err)
	}

	refID := -1
	for _, ref := range r.Header().Refs() {
		if ref.Name() == reg.RefName {
			refID = ref.ID()
			break
		}
	}
	if refID < 0 {
		r.Close()
		fp.Close()
		return nil, fmt.Errorf("[pipeline.BamSource.OpenRegion] reference %q not found in header", reg.RefName)
	}

	chunks, err := idx.Chunks(r.Header().Refs()[refID], reg.Start, reg.End)
	if err != nil {
		r.Close()
		fp.Close()
		return nil, fmt.Errorf("[pipeline.BamSource.OpenRegion] Chunks %s:%d-%d: %w", reg.RefName, reg.Start, reg.End, err)
	}
	if len(chunks) > 0 {
		if err := r.Seek(chunks[0].Begin); err != nil {
			r.Close()
			fp.Close()
			return nil, fmt.Errorf("[pipeline.BamSource.OpenRegion] seek: %w", err)
		}
	}

	return &bamRegionReader{fp: fp, r: r, end: reg.End, ref: reg.RefName}, nil
}

func (b *bamRegionReader) Next() (Alignment, error) {
	for {
		rec, err := b.r.Read()
		if err != nil {
			return Alignment{}, io.EOF
		}
		if rec.Ref == nil || rec.Ref.Name() != b.ref {
			return Alignment{}, io.EOF
		}
		if rec.Pos >= b.end {
			return Alignment{}, io.EOF
		}
		if rec.Flags&sam.Unmapped != 0 || rec.Flags&sam.Secondary != 0 || rec.Flags&sam.Supplementary != 0 {
			continue
		}
		seq := rec.Seq.Expand()
		qual := append([]byte(nil), rec.Qual...)
		for i := range qual {
			qual[i] += 33
		}
		reverse := rec.Flags&sam.Reverse != 0
		if reverse {
			seq = seqops.ReverseComplement(seq)
			qual = seqops.ReverseQual(qual)
		}
		return Alignment{
			Name:      rec.Name,
			Paired:    rec.Flags&sam.Paired != 0,
			FirstMate: rec.Flags&sam.Read1 != 0,
			Reverse:   reverse,
			Seq:       seq,
			Qual:      qual,
		}, nil
	}
}

func (b *bamRegionReader) Close() error {
	b.r.Close()
	return b.fp.Close()
}

// AlignedStats reports the outcome of an aligned-container run.
type AlignedStats struct {
	Kept     int
	Dropped  int
	Total    int
	Dangling int
}

// writeRequest carries one kept pair to the single output-writer
// goroutine; a shared buffer is handed to exactly one owning goroutine
// rather than guarded by a mutex.
type writeRequest struct {
	mate1, mate2 pairassembler.Record
}

// RunAlignedContainer drives the region-parallel worker pool: one
// goroutine per worker pulls regions from a dynamically-fed channel,
// reads alignments in batches, assembles pairs locally, decides each
// complete pair, and buffers kept pairs until the buffer exceeds 1000
// entries, at which point it hands the buffer to the single
// output-writer goroutine. Leftover half-pairs from each region drain
// into one global pairassembler.Table owned by its own goroutine
// (pairassembler.Assembler), never touched by workers directly.
func RunAlignedContainer(src AlignmentSource, regions []Region, out1, out2 string, countOnly bool, kernel *decision.Kernel, threads int) (AlignedStats, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	var w1, w2 *format.Writer
	var ofp1, ofp2 *os.File
	if !countOnly {
		var err error
		w1, ofp1, err = format.Create(out1)
		if err != nil {
			return AlignedStats{}, err
		}
		defer ofp1.Close()
		w2, ofp2, err = format.Create(out2)
		if err != nil {
			return AlignedStats{}, err
		}
		defer ofp2.Close()
	}

	writeC := make(chan []writeRequest, threads)
	writeDone := make(chan error, 1)
	go func() {
		var firstErr error
		for batch := range writeC {
			if countOnly || firstErr != nil {
				continue
			}
			for _, req := range batch {
				if err := w1.Write(format.Record{ID: req.mate1.Name, Seq: req.mate1.Seq, Qual: req.mate1.Qual}); err != nil {
					firstErr = err
					continue
				}
				// Mate-2 output is always reverse-complemented relative to
				// its in-memory orientation, matching the text-paired path,
				// regardless of the strand it happened to map to.
				outRec2 := format.Record{
					ID:   req.mate2.Name,
					Seq:  seqops.ReverseComplement(req.mate2.Seq),
					Qual: seqops.ReverseQual(req.mate2.Qual),
				}
				if err := w2.Write(outRec2); err != nil {
					firstErr = err
				}
			}
		}
		if firstErr == nil && !countOnly {
			if err := w1.Flush(); err != nil {
				firstErr = err
			} else if err := w2.Flush(); err != nil {
				firstErr = err
			}
		}
		writeDone <- firstErr
	}()

	assembler := pairassembler.NewAssembler()

	regionC := make(chan Region, len(regions))
	for _, r := range regions {
		regionC <- r
	}
	close(regionC)

	type workerResult struct {
		kept, dropped, total int
		err                  error
	}
	results := make(chan workerResult, threads)

	for w := 0; w < threads; w++ {
		go func() {
			res := workerResult{}
			for reg := range regionC {
				kept, dropped, total, err := runRegion(src, reg, kernel, assembler, writeC, countOnly)
				res.kept += kept
				res.dropped += dropped
				res.total += total
				if err != nil && res.err == nil {
					res.err = err
				}
			}
			results <- res
		}()
	}

	var stats AlignedStats
	var firstErr error
	for w := 0; w < threads; w++ {
		r := <-results
		stats.Kept += r.kept
		stats.Dropped += r.dropped
		stats.Total += r.total
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
	}
	close(writeC)
	if err := <-writeDone; err != nil && firstErr == nil {
		firstErr = err
	}

	stats.Dangling = assembler.Dangling()
	assembler.Close()
	if stats.Dangling > 0 {
		log.Printf("[pipeline.RunAlignedContainer] %d dangling half pairs at shutdown\n", stats.Dangling)
	}
	return stats, firstErr
}

// runRegion processes one region to completion: reads alignments in
// batches of up to 10000, assembles pairs in a region-local table,
// decides each completed pair, buffers kept pairs, flushing to writeC
// once the buffer exceeds 1000, then drains any half-complete leftovers
// into the global assembler.
func runRegion(src AlignmentSource, reg Region, kernel *decision.Kernel, assembler *pairassembler.Assembler, writeC chan<- []writeRequest, countOnly bool) (kept, dropped, total int, err error) {
	r, err := src.OpenRegion(reg)
	if err != nil {
		return 0, 0, 0, err
	}
	defer r.Close()

	table := pairassembler.NewTable()
	var buf []writeRequest

	const batchSize = 10000
	batch := make([]Alignment, 0, batchSize)
	for {
		batch = batch[:0]
		for len(batch) < batchSize {
			aln, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return kept, dropped, total, err
			}
			batch = append(batch, aln)
		}
		if len(batch) == 0 {
			break
		}
		for _, aln := range batch {
			if !aln.Paired {
				continue
			}
			mate := 2
			if aln.FirstMate {
				mate = 1
			}
			rec := pairassembler.Record{Name: aln.Name, Seq: aln.Seq, Qual: aln.Qual}
			pair, complete, perr := table.Put(aln.Name, mate, rec)
			if perr != nil {
				log.Fatalf("[pipeline.runRegion] %v\n", perr)
			}
			if !complete {
				continue
			}
			total++
			if kernel.Decide(pair.Mate1.Seq, pair.Mate2.Seq) {
				kept++
				if !countOnly {
					buf = append(buf, writeRequest{mate1: pair.Mate1, mate2: pair.Mate2})
					if len(buf) > 1000 {
						writeC <- buf
						buf = nil
					}
				}
			} else {
				dropped++
			}
		}
		if len(batch) < batchSize {
			break
		}
	}

	halves := table.DrainHalves()
	completed, derr := assembler.Drain(halves)
	if derr != nil {
		log.Fatalf("[pipeline.runRegion] %v\n", derr)
	}
	for _, pair := range completed {
		total++
		if kernel.Decide(pair.Mate1.Seq, pair.Mate2.Seq) {
			kept++
			if !countOnly {
				buf = append(buf, writeRequest{mate1: pair.Mate1, mate2: pair.Mate2})
			}
		} else {
			dropped++
		}
	}

	if len(buf) > 0 {
		writeC <- buf
	}
	return kept, dropped, total, nil
}
