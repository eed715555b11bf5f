package stream

import "github.com/moontrade/faststream/pkg/counter"

// Stats tracks a stream's drain activity. Counters wrap sink and page
// events only; the per-byte write path stays untouched.
type Stats struct {
	Drains       counter.Counter
	DrainsDur    counter.TimeCounter
	DrainedBytes counter.Counter
	Flushes      counter.Counter
	Reserves     counter.Counter
	Finalizes    counter.Counter
	Errors       counter.Counter
}
