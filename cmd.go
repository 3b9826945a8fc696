package main

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/jwaldrip/odin/cli"

	"github.com/mudesheng/kmerfilt/config"
	"github.com/mudesheng/kmerfilt/decision"
	"github.com/mudesheng/kmerfilt/kmerindex"
	"github.com/mudesheng/kmerfilt/kmerset"
	"github.com/mudesheng/kmerfilt/pipeline"
)

// discoverRegions enumerates one whole-reference Region per entry in
// the BAM header's reference dictionary, the simplest schedule when the
// caller has not pre-split references into smaller windows.
func discoverRegions(bamPath string) ([]pipeline.Region, error) {
	fp, err := os.Open(bamPath)
	if err != nil {
		return nil, fmt.Errorf("[discoverRegions] open %s: %w", bamPath, err)
	}
	defer fp.Close()
	r, err := bam.NewReader(fp, 1)
	if err != nil {
		return nil, fmt.Errorf("[discoverRegions] bam.NewReader %s: %w", bamPath, err)
	}
	defer r.Close()

	var regions []pipeline.Region
	for _, ref := range r.Header().Refs() {
		regions = append(regions, pipeline.Region{RefName: ref.Name(), Start: 0, End: ref.Len()})
	}
	return regions, nil
}

// checkArgsFilter populates and validates a config.Options from the
// filter subcommand's flags, log.Fatalf-ing on the first bad flag,
// mirroring preprocess.checkArgsPP's validate-and-fatal style.
func checkArgsFilter(c cli.Command) config.Options {
	opt := config.Default()
	opt.PositiveFilter = c.Flag("positive_filter").Get().(string)
	opt.NegativeFilter = c.Flag("negative_filter").Get().(string)
	opt.InputBAM = c.Flag("input_bam").Get().(string)
	opt.InputFastqBase = c.Flag("input_fastq").Get().(string)
	opt.OutputFastqBase = c.Flag("output_fastq").Get().(string)
	opt.K = c.Flag("k").Get().(int)
	opt.PositiveThreshold = c.Flag("positive_threshold").Get().(float64)
	opt.NegativeThreshold = c.Flag("negative_threshold").Get().(float64)
	opt.PositiveUnique = c.Flag("positive_unique").Get().(bool)
	opt.PositiveUniqueThreshold = c.Flag("positive_unique_threshold").Get().(int)
	opt.NegativePreserveUnique = c.Flag("negative_preserve_unique").Get().(bool)
	opt.NegativePreserveUniqueThreshold = c.Flag("negative_preserve_unique_threshold").Get().(int)
	opt.UniquenessBase = c.Flag("uniqueness_base").Get().(string)
	opt.UniquenessSubtract = c.Flag("uniqueness_subtract").Get().(string)
	opt.Threads = c.Flag("threads").Get().(int)
	opt.PositiveUniqueSymmetric = c.Flag("positive_unique_symmetric").Get().(bool)
	opt.CountOnly = c.Flag("count_only").Get().(bool)
	opt.Validate()
	return opt
}

// filterCmd is the "filter" subcommand's body, grounded in preprocess.Correct's
// shape: validate flags, build up the collaborators the pipeline needs,
// then dispatch to exactly one of the two pipeline modes.
func filterCmd(c cli.Command) {
	opt := checkArgsFilter(c)
	fmt.Printf("[filterCmd] opt: %+v\n", opt)

	var pos decision.PositiveSet
	if opt.PositiveFilter != "" {
		ks, err := kmerset.Load(opt.PositiveFilter, opt.K)
		if err != nil {
			log.Fatalf("[filterCmd] load positive_filter: %v\n", err)
		}
		pos = ks
	}

	var neg decision.NegativeIndex
	if opt.NegativeFilter != "" {
		idx, err := kmerindex.Load(opt.NegativeFilter, opt.K)
		if err != nil {
			log.Fatalf("[filterCmd] load negative_filter: %v\n", err)
		}
		neg = idx
	}

	var uniq decision.UniquenessSet
	if opt.PositiveUnique || opt.NegativePreserveUnique {
		base, err := kmerset.Load(opt.UniquenessBase, opt.K)
		if err != nil {
			log.Fatalf("[filterCmd] load uniqueness_base: %v\n", err)
		}
		var subtract kmerset.Index
		isIndex, err := kmerindex.IsIndexFile(opt.UniquenessSubtract)
		if err != nil {
			log.Fatalf("[filterCmd] sniff uniqueness_subtract: %v\n", err)
		}
		if isIndex {
			subtract, err = kmerindex.Load(opt.UniquenessSubtract, opt.K)
		} else {
			subtract, err = kmerset.Load(opt.UniquenessSubtract, opt.K)
		}
		if err != nil {
			log.Fatalf("[filterCmd] load uniqueness_subtract: %v\n", err)
		}
		uniq = kmerset.BuildUniqueness(base, subtract)
	}

	kernel := decision.New(decision.Config{
		Positive:                        pos,
		Negative:                        neg,
		Unique:                          uniq,
		K:                               opt.K,
		PositiveThreshold:               opt.PositiveThreshold,
		NegativeThreshold:               opt.NegativeThreshold,
		PositiveUnique:                  opt.PositiveUnique,
		PositiveUniqueThreshold:         opt.PositiveUniqueThreshold,
		NegativePreserveUnique:          opt.NegativePreserveUnique,
		NegativePreserveUniqueThreshold: opt.NegativePreserveUniqueThreshold,
		PositiveUniqueSymmetric:         opt.PositiveUniqueSymmetric,
	})

	showBar := c.Flag("progress").Get().(bool)

	if opt.InputFastqBase != "" {
		stats, err := pipeline.RunTextPaired(
			opt.InputFastqBase+"_1", opt.InputFastqBase+"_2",
			opt.OutputFastqBase+"_1", opt.OutputFastqBase+"_2",
			opt.CountOnly, kernel, showBar,
		)
		if err != nil {
			log.Fatalf("[filterCmd] RunTextPaired: %v\n", err)
		}
		fmt.Printf("[filterCmd] total=%d kept=%d dropped=%d\n", stats.Total, stats.Kept, stats.Dropped)
		return
	}

	src := pipeline.NewBamSource(opt.InputBAM)
	regions, err := discoverRegions(opt.InputBAM)
	if err != nil {
		log.Fatalf("[filterCmd] discoverRegions: %v\n", err)
	}
	stats, err := pipeline.RunAlignedContainer(
		src, regions,
		opt.OutputFastqBase+"_1", opt.OutputFastqBase+"_2",
		opt.CountOnly, kernel, opt.Threads,
	)
	if err != nil {
		log.Fatalf("[filterCmd] RunAlignedContainer: %v\n", err)
	}
	fmt.Printf("[filterCmd] total=%d kept=%d dropped=%d dangling=%d\n", stats.Total, stats.Kept, stats.Dropped, stats.Dangling)
}

// buildIndexCmd loads a compact binary de Bruijn graph index purely to
// validate it (header k matches, entry stream well-formed) and reports
// its size, mirroring constructcf.CCF's "build then report counters"
// shape applied to a load-only tool.
func buildIndexCmd(c cli.Command) {
	path := c.Flag("in").Get().(string)
	k := c.Flag("k").Get().(int)
	idx, err := kmerindex.Load(path, k)
	if err != nil {
		log.Fatalf("[buildIndexCmd] %v\n", err)
	}
	fmt.Printf("[buildIndexCmd] %s: k=%d colours=%d entries=%d\n", path, idx.K, idx.Colours, idx.Len())
}

// buildKmerSetCmd loads a text k-mer list, optionally subtracts a
// second k-mer source to build a uniqueness set, and writes the result
// back out one k-mer per line.
func buildKmerSetCmd(c cli.Command) {
	in := c.Flag("in").Get().(string)
	k := c.Flag("k").Get().(int)
	out := c.Flag("out").Get().(string)
	subtractPath := c.Flag("subtract").Get().(string)

	base, err := kmerset.Load(in, k)
	if err != nil {
		log.Fatalf("[buildKmerSetCmd] load in: %v\n", err)
	}

	result := base
	if subtractPath != "" {
		var subtract kmerset.Index
		isIndex, err := kmerindex.IsIndexFile(subtractPath)
		if err != nil {
			log.Fatalf("[buildKmerSetCmd] sniff subtract: %v\n", err)
		}
		if isIndex {
			subtractK := c.Flag("subtract_k").Get().(int)
			idx, err := kmerindex.Load(subtractPath, subtractK)
			if err != nil {
				log.Fatalf("[buildKmerSetCmd] load subtract index: %v\n", err)
			}
			subtract = idx
		} else {
			ks, err := kmerset.Load(subtractPath, k)
			if err != nil {
				log.Fatalf("[buildKmerSetCmd] load subtract: %v\n", err)
			}
			subtract = ks
		}
		result = kmerset.BuildUniqueness(base, subtract)
	}

	fp, err := os.Create(out)
	if err != nil {
		log.Fatalf("[buildKmerSetCmd] create %s: %v\n", out, err)
	}
	defer fp.Close()
	bw := bufio.NewWriter(fp)
	result.Range(func(kmer string) {
		fmt.Fprintln(bw, kmer)
	})
	if err := bw.Flush(); err != nil {
		log.Fatalf("[buildKmerSetCmd] flush %s: %v\n", out, err)
	}
	fmt.Printf("[buildKmerSetCmd] wrote %d k-mers to %s\n", result.Len(), out)
}
