package timex

import (
	"time"
	_ "unsafe"
)

//go:noescape
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64

func Since(start int64) int64 {
	return NanoTime() - start
}

func SinceDur(start int64) time.Duration {
	return time.Duration(NanoTime() - start)
}

type StopWatch int64

func NewStopWatch() StopWatch {
	return StopWatch(NanoTime())
}

func (s *StopWatch) Start() {
	*s = StopWatch(NanoTime())
}

func (s *StopWatch) Stop() int64 {
	o := int64(*s)
	n := NanoTime()
	*s = StopWatch(n)
	return n - o
}

func (s *StopWatch) Elapsed() int64 {
	return NanoTime() - int64(*s)
}
