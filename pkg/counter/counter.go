package counter

import (
	"sync/atomic"
	"time"

	"github.com/moontrade/faststream/pkg/timex"
)

type Counter int64

func (c *Counter) Load() int64 {
	return atomic.LoadInt64((*int64)(c))
}

func (c *Counter) Incr() int64 {
	return atomic.AddInt64((*int64)(c), 1)
}

func (c *Counter) Decr() int64 {
	return atomic.AddInt64((*int64)(c), -1)
}

func (c *Counter) Add(count int64) {
	atomic.AddInt64((*int64)(c), count)
}

func (c *Counter) Store(value int64) {
	atomic.StoreInt64((*int64)(c), value)
}

// TimeCounter accumulates elapsed nanoseconds.
type TimeCounter int64

func (c *TimeCounter) Load() int64 {
	return atomic.LoadInt64((*int64)(c))
}

func (c *TimeCounter) Add(nanos int64) {
	atomic.AddInt64((*int64)(c), nanos)
}

func (c *TimeCounter) Since(s timex.StopWatch) {
	atomic.AddInt64((*int64)(c), s.Elapsed())
}

func (c *TimeCounter) Duration() time.Duration {
	return time.Duration(c.Load())
}
