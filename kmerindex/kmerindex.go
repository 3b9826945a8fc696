// Package kmerindex implements the negative k-mer index: a compact,
// open-addressed, hash-table-backed set of fixed-length k-mers loaded
// from a binary multi-colour de Bruijn graph file. Queries are
// read-only and safe for concurrent use once Load returns.
//
// The on-disk probe sequence follows a cuckoo-filter-style primary/alternate
// slot scheme, generalized from a 16-bit fingerprint slot to a fully
// packed key so Contains never produces a false positive, which a pure
// fingerprint cannot guarantee.
package kmerindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math/bits"
	"os"

	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/zstd"

	"github.com/mudesheng/kmerfilt/bnt"
)

const magic = uint32(0x4b4d4331) // "KMC1"

// Header is the fixed-size file header: k, colour count, and the
// (height, width) hash-table geometry.
type Header struct {
	K       int
	Colours int
	Height  uint
	Width   uint
}

type entry struct {
	key      []uint64 // packed 2-bit-per-base key, len = words
	coverage []uint16 // per-colour coverage counter
	edges    []byte   // per-colour edge bitfield
	status   []byte   // per-colour status byte
	used     bool
}

// KmerIndex answers exact membership for length-K strings.
type KmerIndex struct {
	Header
	words    int
	capacity uint64
	table    []entry
}

// ErrKmerMismatch is returned when a file's declared k does not match
// the caller's configured k.
type ErrKmerMismatch struct {
	Path        string
	FileK       int
	ConfiguredK int
}

func (e *ErrKmerMismatch) Error() string {
	return fmt.Sprintf("%s: file k=%d does not match configured k=%d", e.Path, e.FileK, e.ConfiguredK)
}

// Load reads a binary multi-colour de Bruijn graph file from path and
// builds a KmerIndex. configuredK must equal the file's declared k or
// Load returns *ErrKmerMismatch. A zstd-framed file is transparently
// decompressed. Callers that need to tell this format apart from a
// text k-mer list before committing to a loader should check
// IsIndexFile first.
func Load(path string, configuredK int) (*KmerIndex, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[kmerindex.Load] open %s: %w", path, err)
	}
	defer fp.Close()

	r, err := decompressingReader(fp)
	if err != nil {
		return nil, fmt.Errorf("[kmerindex.Load] %s: %w", path, err)
	}

	hdr, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("[kmerindex.Load] %s: read header: %w", path, err)
	}
	if hdr.K != configuredK {
		return nil, &ErrKmerMismatch{Path: path, FileK: hdr.K, ConfiguredK: configuredK}
	}

	idx := &KmerIndex{
		Header:   hdr,
		words:    (hdr.K + bnt.NumBaseInUint64 - 1) / bnt.NumBaseInUint64,
		capacity: uint64(hdr.Width) << hdr.Height,
	}
	idx.table = make([]entry, idx.capacity)

	nEntries := 0
	for {
		key, cov, edges, status, err := readEntry(r, idx.words, hdr.Colours)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("[kmerindex.Load] %s: truncated entry stream at entry %d: %w", path, nEntries, err)
		}
		idx.insertLoaded(key, cov, edges, status)
		nEntries++
	}
	fmt.Printf("[kmerindex.Load] loaded %d entries from %s (k=%d colours=%d)\n", nEntries, path, hdr.K, hdr.Colours)
	return idx, nil
}

// IsIndexFile reports whether path's magic number (after transparently
// looking through a zstd frame, same as Load) matches this package's
// binary de Bruijn graph format. It exists so a caller accepting either
// a text k-mer list or a binary index can choose the right loader up
// front, since Load itself cannot fail with a plain error on bad magic
// alone without first parsing past it -- a caller cannot distinguish
// "not this format" from any other Load failure by inspecting the
// returned error.
func IsIndexFile(path string) (bool, error) {
	fp, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("[kmerindex.IsIndexFile] open %s: %w", path, err)
	}
	defer fp.Close()

	r, err := decompressingReader(fp)
	if err != nil {
		return false, fmt.Errorf("[kmerindex.IsIndexFile] %s: %w", path, err)
	}
	var word uint32
	if err := binary.Read(r, binary.LittleEndian, &word); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, fmt.Errorf("[kmerindex.IsIndexFile] %s: %w", path, err)
	}
	return word == magic, nil
}

func decompressingReader(fp *os.File) (io.Reader, error) {
	br := bufio.NewReader(fp)
	magicBytes, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, err
	}
	// zstd magic: 0x28 0xB5 0x2F 0xFD
	if len(magicBytes) == 4 && magicBytes[0] == 0x28 && magicBytes[1] == 0xb5 && magicBytes[2] == 0x2f && magicBytes[3] == 0xfd {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	}
	return br, nil
}

func readHeader(r io.Reader) (Header, error) {
	var fields [4]uint32
	if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
		return Header{}, err
	}
	if fields[0] != magic {
		return Header{}, fmt.Errorf("bad magic %#x", fields[0])
	}
	var rest [4]uint32
	if err := binary.Read(r, binary.LittleEndian, &rest); err != nil {
		return Header{}, err
	}
	return Header{
		K:       int(rest[0]),
		Colours: int(rest[1]),
		Height:  uint(rest[2]),
		Width:   uint(rest[3]),
	}, nil
}

func readEntry(r io.Reader, words, colours int) (key []uint64, coverage []uint16, edges, status []byte, err error) {
	key = make([]uint64, words)
	if err = binary.Read(r, binary.LittleEndian, key); err != nil {
		return nil, nil, nil, nil, err
	}
	coverage = make([]uint16, colours)
	edges = make([]byte, colours)
	status = make([]byte, colours)
	err = binary.Read(r, binary.LittleEndian, coverage)
	if err == nil {
		_, err = io.ReadFull(r, edges)
	}
	if err == nil {
		_, err = io.ReadFull(r, status)
	}
	if err == io.EOF {
		// The key was already read, so running out of input here is a
		// truncated entry, not a clean end of stream.
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return key, coverage, edges, status, nil
}

// PackKmer packs an exact-length k-mer into the 2-bit-per-base scheme
// used by the file format and by Contains's query path. ok is false if
// kmer contains an N or any byte outside {A,C,G,T}: such a base has no
// 2-bit slot of its own, and packing it (even masked) would collide
// with a real base's bit pattern, so the caller must treat the k-mer as
// a guaranteed non-match rather than pack and probe it.
func PackKmer(kmer []byte) (packed []uint64, ok bool) {
	words := (len(kmer) + bnt.NumBaseInUint64 - 1) / bnt.NumBaseInUint64
	packed = make([]uint64, words)
	ok = true
	for i, b := range kmer {
		code := bnt.Base2Bnt[b]
		if code >= bnt.N {
			ok = false
		}
		w := i / bnt.NumBaseInUint64
		packed[w] <<= bnt.NumBitsInBase
		packed[w] |= uint64(code) & bnt.BaseMask
	}
	return packed, ok
}

func hashKey(key []uint64) uint64 {
	buf := make([]byte, 8*len(key))
	for i, w := range key {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return xxhash.Sum64(buf)
}

// primaryIndex and altIndex implement the cuckoo-filter-style probe
// sequence: a primary slot derived from the hash, and a single
// alternate slot reachable by offsetting with a secondary value derived
// from the same hash, both reduced into [0, capacity).
func (idx *KmerIndex) primaryIndex(hash uint64) uint64 {
	return hash % idx.capacity
}

func (idx *KmerIndex) altIndex(hash, primary uint64) uint64 {
	step := (hash>>32 | 1) % idx.capacity
	alt := primary + step
	if alt >= idx.capacity {
		alt -= idx.capacity
	}
	return alt
}

func keyEqual(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (idx *KmerIndex) insertLoaded(key []uint64, coverage []uint16, edges, status []byte) {
	hash := hashKey(key)
	primary := idx.primaryIndex(hash)
	if !idx.table[primary].used {
		idx.table[primary] = entry{key: key, coverage: coverage, edges: edges, status: status, used: true}
		return
	}
	alt := idx.altIndex(hash, primary)
	// Linear scan from the alternate slot until an empty one is found;
	// the file is assumed well-formed (load factor kept low by the
	// producing tool), so this terminates quickly in practice.
	for i := uint64(0); i < idx.capacity; i++ {
		slot := (alt + i) % idx.capacity
		if !idx.table[slot].used {
			idx.table[slot] = entry{key: key, coverage: coverage, edges: edges, status: status, used: true}
			return
		}
	}
	log.Fatalf("[kmerindex.insertLoaded] hash table full, capacity=%d\n", idx.capacity)
}

// Contains reports whether kmer (length must equal Header.K) is present.
// It probes the primary slot, then the alternate slot's linear run,
// comparing the full packed key at each occupied slot for exactness.
func (idx *KmerIndex) Contains(kmer []byte) bool {
	if len(kmer) != idx.K {
		return false
	}
	key, ok := PackKmer(kmer)
	if !ok {
		return false
	}
	hash := hashKey(key)
	primary := idx.primaryIndex(hash)
	if e := &idx.table[primary]; e.used && keyEqual(e.key, key) {
		return true
	}
	alt := idx.altIndex(hash, primary)
	for i := uint64(0); i < idx.capacity; i++ {
		slot := (alt + i) % idx.capacity
		e := &idx.table[slot]
		if !e.used {
			return false
		}
		if keyEqual(e.key, key) {
			return true
		}
	}
	return false
}

// Len reports how many entries are populated.
func (idx *KmerIndex) Len() int {
	n := 0
	for i := range idx.table {
		if idx.table[i].used {
			n++
		}
	}
	return n
}

// Save writes idx back out in the same binary layout Load reads,
// uncompressed. This exists mainly so tests can round-trip a
// constructed index without shelling out to an external graph builder.
func (idx *KmerIndex) Save(path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	w := bufio.NewWriter(fp)

	if err := binary.Write(w, binary.LittleEndian, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, [3]uint32{}); err != nil {
		return err
	}
	fields := [4]uint32{uint32(idx.K), uint32(idx.Colours), uint32(idx.Height), uint32(idx.Width)}
	if err := binary.Write(w, binary.LittleEndian, fields); err != nil {
		return err
	}
	for i := range idx.table {
		e := &idx.table[i]
		if !e.used {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, e.key); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, e.coverage); err != nil {
			return err
		}
		if _, err := w.Write(e.edges); err != nil {
			return err
		}
		if _, err := w.Write(e.status); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Insert is used by tests and by any future index-building tool to
// populate a KmerIndex directly from k-mers rather than a file.
func (idx *KmerIndex) Insert(kmer []byte, coverage []uint16, edges, status []byte) {
	key, ok := PackKmer(kmer)
	if !ok {
		log.Fatalf("[kmerindex.Insert] %q contains a base outside {A,C,G,T}\n", kmer)
	}
	idx.insertLoaded(key, coverage, edges, status)
}

// New allocates an empty, insertable KmerIndex sized for at least
// maxEntries (rounded up to the next power of two for Height/Width
// bookkeeping).
func New(k, colours int, maxEntries uint64) *KmerIndex {
	if maxEntries == 0 {
		maxEntries = 1
	}
	capacity := upperPowerOfTwo(maxEntries)
	height := uint(bits.TrailingZeros64(capacity))
	idx := &KmerIndex{
		Header:   Header{K: k, Colours: colours, Height: height, Width: 1},
		words:    (k + bnt.NumBaseInUint64 - 1) / bnt.NumBaseInUint64,
		capacity: capacity,
	}
	idx.table = make([]entry, idx.capacity)
	return idx
}

func upperPowerOfTwo(x uint64) uint64 {
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	return x
}
