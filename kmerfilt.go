package main

import (
	"github.com/jwaldrip/odin/cli"
)

var app = cli.New("1.0.0", "filter paired short reads by k-mer content against positive/negative k-mer sets", func(c cli.Command) {})

func init() {
	filt := app.DefineSubCommand("filter", "filter a paired read set against positive/negative k-mer criteria", filterCmd)
	{
		filt.DefineStringFlag("positive_filter", "", "path to positive k-mer text file, one k-mer per line")
		filt.DefineStringFlag("negative_filter", "", "path to compact binary de Bruijn graph index")
		filt.DefineStringFlag("input_bam", "", "path to indexed aligned-read container (mutually exclusive with input_fastq)")
		filt.DefineStringFlag("input_fastq", "", "base path for <base>_1/<base>_2 paired text input")
		filt.DefineStringFlag("output_fastq", "", "base path for <out>_1/<out>_2 paired text output")
		filt.DefineIntFlag("k", 25, "kmer length, must equal 25 when negative_filter is set")
		filt.DefineFloat64Flag("positive_threshold", 0, "positive fractional match threshold, in [0,1]")
		filt.DefineFloat64Flag("negative_threshold", 0, "negative fractional match threshold, in [0,1]")
		filt.DefineBoolFlag("positive_unique", false, "enable the positive-unique rescue path")
		filt.DefineIntFlag("positive_unique_threshold", 10, "positive-unique rescue threshold")
		filt.DefineBoolFlag("negative_preserve_unique", false, "enable the negative-preserve-unique rescue path")
		filt.DefineIntFlag("negative_preserve_unique_threshold", 10, "negative-preserve-unique rescue threshold")
		filt.DefineStringFlag("uniqueness_base", "", "path to the base k-mer set for uniqueness construction")
		filt.DefineStringFlag("uniqueness_subtract", "", "path to the k-mer set/index to subtract for uniqueness construction")
		filt.DefineIntFlag("threads", 10, "worker count for aligned-container mode")
		filt.DefineBoolFlag("positive_unique_symmetric", false, "compare the reverse-unique count against positive_unique_threshold instead of positive_threshold")
		filt.DefineBoolFlag("count_only", false, "tally kept/dropped pairs without writing output")
		filt.DefineBoolFlag("progress", false, "show a progress bar for text-paired mode")
	}

	bidx := app.DefineSubCommand("buildindex", "load and validate a compact binary de Bruijn graph index", buildIndexCmd)
	{
		bidx.DefineStringFlag("in", "", "path to the binary de Bruijn graph index")
		bidx.DefineIntFlag("k", 25, "expected kmer length")
	}

	bks := app.DefineSubCommand("buildkmerset", "build a positive/uniqueness k-mer set from a source, subtracting an optional index", buildKmerSetCmd)
	{
		bks.DefineStringFlag("in", "", "path to a text k-mer list, one per line")
		bks.DefineIntFlag("k", 25, "kmer length")
		bks.DefineStringFlag("subtract", "", "optional path to a k-mer list or de Bruijn graph index to subtract")
		bks.DefineIntFlag("subtract_k", 25, "kmer length of the subtract source, if it is a de Bruijn graph index")
		bks.DefineStringFlag("out", "", "output path for the resulting k-mer list")
	}
}

func main() {
	app.Start()
}
