// Package pairassembler joins mate-1/mate-2 records streaming in out of
// order into complete pairs, with bounded memory and exactly-once
// delivery. A Table is the per-partition state machine; an Assembler
// owns a set of per-worker local Tables plus one global Table for
// cross-region leftovers.
//
// The global table is never guarded by a raw mutex: it hands its
// mutable state to exactly one owning goroutine and mediates all access
// through a channel, so Assembler runs the global table inside its own
// goroutine and talks to it only over drainRequest/danglingRequest channels.
package pairassembler

import "fmt"

// Record is the minimal read shape the assembler needs to hold: the
// pair-assembler never looks at sequence content, only identity.
type Record struct {
	Name string
	Seq  []byte
	Qual []byte
}

// Pair holds the two mate slots of a read pair.
type Pair struct {
	Key   string
	Mate1 Record
	Mate2 Record
	have1 bool
	have2 bool
}

// Complete reports whether both mate slots are filled.
func (p *Pair) Complete() bool { return p.have1 && p.have2 }

// ConsistencyError is returned when a slot that is already filled is
// filled again with a mismatching record.
type ConsistencyError struct {
	Key         string
	Mate        int
	Existing    string
	Conflicting string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("pair %q mate %d already filled by %q, conflicting read %q", e.Key, e.Mate, e.Existing, e.Conflicting)
}

// Table is a single partition's pair-key -> pair mapping.
type Table struct {
	m map[string]*Pair
}

// NewTable returns an empty partition.
func NewTable() *Table {
	return &Table{m: make(map[string]*Pair)}
}

// Put records one mate of a pair. If the pair becomes complete it is
// returned with complete=true, immediately delivered to the caller, and
// removed from the table. Filling an already-filled slot with a
// record of a different name is a hard error returned as
// *ConsistencyError; if the incoming record has the same name as the one
// already held (duplicate delivery), Put is a no-op. Sequence and
// qualities are not compared.
func (t *Table) Put(key string, mate int, rec Record) (pair *Pair, complete bool, err error) {
	if mate != 1 && mate != 2 {
		return nil, false, fmt.Errorf("pairassembler: invalid mate index %d", mate)
	}
	p, ok := t.m[key]
	if !ok {
		p = &Pair{Key: key}
		t.m[key] = p
	}
	if mate == 1 {
		if p.have1 {
			if p.Mate1.Name == rec.Name {
				return p, p.Complete(), nil
			}
			return nil, false, &ConsistencyError{Key: key, Mate: 1, Existing: p.Mate1.Name, Conflicting: rec.Name}
		}
		p.Mate1 = rec
		p.have1 = true
	} else {
		if p.have2 {
			if p.Mate2.Name == rec.Name {
				return p, p.Complete(), nil
			}
			return nil, false, &ConsistencyError{Key: key, Mate: 2, Existing: p.Mate2.Name, Conflicting: rec.Name}
		}
		p.Mate2 = rec
		p.have2 = true
	}
	if p.Complete() {
		delete(t.m, key)
		return p, true, nil
	}
	return p, false, nil
}

// DrainHalves removes and returns every half-complete pair still held,
// used at region end-of-stream to hand leftovers to the global table.
func (t *Table) DrainHalves() []*Pair {
	halves := make([]*Pair, 0, len(t.m))
	for k, p := range t.m {
		halves = append(halves, p)
		delete(t.m, k)
	}
	return halves
}

// Len reports how many half-complete pairs are currently held.
func (t *Table) Len() int { return len(t.m) }

// drainRequest asks the global-table goroutine to merge a batch of
// half pairs from a finishing region worker and report any pairs that
// became complete plus any consistency error encountered.
type drainRequest struct {
	halves []*Pair
	result chan drainResult
}

type drainResult struct {
	completed []*Pair
	err       error
}

type danglingRequest struct {
	result chan int
}

// Assembler coordinates region-local Tables (owned directly by each
// worker, no synchronization needed) and a single global Table for
// cross-region leftovers, accessed only through its owning goroutine.
type Assembler struct {
	drainC    chan drainRequest
	danglingC chan danglingRequest
	done      chan struct{}
}

// NewAssembler starts the global-table goroutine and returns an
// Assembler ready to accept region drains.
func NewAssembler() *Assembler {
	a := &Assembler{
		drainC:    make(chan drainRequest),
		danglingC: make(chan danglingRequest),
		done:      make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Assembler) run() {
	global := NewTable()
	for {
		select {
		case req := <-a.drainC:
			var completed []*Pair
			var firstErr error
			for _, half := range req.halves {
				var rec Record
				var mate int
				if half.have1 {
					rec, mate = half.Mate1, 1
				} else {
					rec, mate = half.Mate2, 2
				}
				p, complete, err := global.Put(half.Key, mate, rec)
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				if complete {
					completed = append(completed, p)
				}
			}
			req.result <- drainResult{completed: completed, err: firstErr}
		case req := <-a.danglingC:
			req.result <- global.Len()
		case <-a.done:
			return
		}
	}
}

// Drain hands a region worker's leftover half pairs to the global table
// and returns any pairs that completed as a result: the global table
// re-runs the same state machine across every worker's leftovers.
func (a *Assembler) Drain(halves []*Pair) ([]*Pair, error) {
	if len(halves) == 0 {
		return nil, nil
	}
	req := drainRequest{halves: halves, result: make(chan drainResult, 1)}
	a.drainC <- req
	res := <-req.result
	return res.completed, res.err
}

// Dangling reports the number of half pairs still held globally, for
// the non-fatal "dangling reads" warning at shutdown.
func (a *Assembler) Dangling() int {
	req := danglingRequest{result: make(chan int, 1)}
	a.danglingC <- req
	return <-req.result
}

// Close shuts down the global-table goroutine. Call after all regions
// have finished draining.
func (a *Assembler) Close() {
	close(a.done)
}
