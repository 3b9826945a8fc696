// Package config validates the filter run's configuration options.
// Every bad option is reported with log.Fatalf naming the option,
// before any work starts.
package config

import "log"

// Options enumerates every configuration key the filter run accepts.
type Options struct {
	PositiveFilter string
	NegativeFilter string

	InputBAM        string
	InputFastqBase  string
	OutputFastqBase string

	K int

	PositiveThreshold float64
	NegativeThreshold float64

	PositiveUnique          bool
	PositiveUniqueThreshold int

	NegativePreserveUnique          bool
	NegativePreserveUniqueThreshold int

	UniquenessBase     string
	UniquenessSubtract string

	Threads int

	// PositiveUniqueSymmetric switches the reverse-unique count to compare
	// against PositiveUniqueThreshold instead of PositiveThreshold; see
	// decision.Config.
	PositiveUniqueSymmetric bool

	// CountOnly reports the kept/dropped tally without writing output.
	CountOnly bool
}

// Default returns Options with the documented defaults applied.
func Default() Options {
	return Options{
		K:                               25,
		PositiveUniqueThreshold:         10,
		NegativePreserveUniqueThreshold: 10,
		Threads:                         10,
	}
}

// Validate enforces the configuration-error rules, log.Fatalf-ing on
// the first violation found, naming the offending option.
func (o *Options) Validate() {
	if o.PositiveFilter == "" && o.NegativeFilter == "" {
		log.Fatalf("[config.Validate] specify either 'positive_filter' or 'negative_filter'\n")
	}
	bam := o.InputBAM != ""
	fq := o.InputFastqBase != ""
	if bam == fq {
		if bam {
			log.Fatalf("[config.Validate] 'input_bam' and 'input_fastq' are mutually exclusive, specify exactly one\n")
		} else {
			log.Fatalf("[config.Validate] specify exactly one of 'input_bam' or 'input_fastq'\n")
		}
	}
	if fq && o.OutputFastqBase == "" {
		log.Fatalf("[config.Validate] 'output_fastq' is required with 'input_fastq'\n")
	}
	if o.NegativeFilter != "" && o.K != 25 {
		log.Fatalf("[config.Validate] 'k' must equal 25 when 'negative_filter' is set, got %d\n", o.K)
	}
	if o.PositiveThreshold < 0 || o.PositiveThreshold > 1 {
		log.Fatalf("[config.Validate] 'positive_threshold' must be in [0,1], got %v\n", o.PositiveThreshold)
	}
	if o.NegativeThreshold < 0 || o.NegativeThreshold > 1 {
		log.Fatalf("[config.Validate] 'negative_threshold' must be in [0,1], got %v\n", o.NegativeThreshold)
	}
	if o.PositiveUniqueThreshold < 0 {
		log.Fatalf("[config.Validate] 'positive_unique_threshold' must be non-negative, got %d\n", o.PositiveUniqueThreshold)
	}
	if o.NegativePreserveUniqueThreshold < 0 {
		log.Fatalf("[config.Validate] 'negative_preserve_unique_threshold' must be non-negative, got %d\n", o.NegativePreserveUniqueThreshold)
	}
	needUniq := o.PositiveUnique || o.NegativePreserveUnique
	if needUniq && (o.UniquenessBase == "" || o.UniquenessSubtract == "") {
		log.Fatalf("[config.Validate] 'uniqueness_base' and 'uniqueness_subtract' are required when a unique flag is set\n")
	}
	if o.Threads <= 0 {
		log.Fatalf("[config.Validate] 'threads' must be positive, got %d\n", o.Threads)
	}
}
