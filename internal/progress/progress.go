// Package progress wraps cheggaaa/pb/v3 progress bars behind a small
// counter interface so pipeline code stays testable without a
// terminal attached. Grounded in davidebolo1993-kfilt's progress-bar
// UX for a long-running record-by-record filter.
package progress

import "github.com/cheggaaa/pb/v3"

// Counter reports progress over a known or unknown total.
type Counter struct {
	bar *pb.ProgressBar
}

// NewCounter starts a bar over total items labeled label. total <= 0
// renders an indeterminate bar.
func NewCounter(total int64, label string) *Counter {
	bar := pb.New64(total)
	bar.Set(pb.Bytes, false)
	bar.SetTemplateString(`{{ ` + "`" + label + "`" + ` }} {{counters . }} {{bar . }} {{percent . }} {{etime . }}`)
	bar.Start()
	return &Counter{bar: bar}
}

// Increment advances the counter by one.
func (c *Counter) Increment() {
	c.bar.Increment()
}

// Add advances the counter by n.
func (c *Counter) Add(n int) {
	c.bar.Add(n)
}

// Finish stops and renders the bar's final state.
func (c *Counter) Finish() {
	c.bar.Finish()
}
