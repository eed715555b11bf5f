package stream

import (
	"context"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/moontrade/faststream/config"
	"github.com/moontrade/faststream/pkg/util"
)

type CloseBehavior int8

const (
	// WaitAsyncClose blocks the caller until an async close completes.
	WaitAsyncClose CloseBehavior = 0
	// DontWaitAsyncClose returns immediately; errors from the close are
	// reported through the unhandled-error handler.
	DontWaitAsyncClose CloseBehavior = 1
)

// Handle owns a stream and guarantees its sink is closed exactly once.
type Handle struct {
	s *OutputStream
}

func NewHandle(s *OutputStream) *Handle {
	return &Handle{s: s}
}

// Stream returns the owned stream, nil once closed.
func (h *Handle) Stream() *OutputStream { return h.s }

var closers = sync.OnceValue(func() *ants.Pool {
	p, _ := ants.NewPool(config.CloserPoolSize)
	return p
})

// Close closes the owned stream through its sink's async close when
// present, otherwise its sync close. After Close the handle is inert
// and writes through the stream are a defect.
func (h *Handle) Close(behavior CloseBehavior) error {
	s := h.s
	if s == nil {
		return os.ErrClosed
	}
	h.s = nil
	sink := s.sink
	if sink != nil && sink.CloseAsync != nil {
		if behavior == WaitAsyncClose {
			return s.CloseAsync(context.Background())
		}
		fn := func() {
			defer func() {
				if e := recover(); e != nil {
					reportUnhandled(util.PanicToError(e))
				}
			}()
			if err := s.CloseAsync(context.Background()); err != nil {
				reportUnhandled(err)
			}
		}
		if pool := closers(); pool == nil || pool.Submit(fn) != nil {
			go fn()
		}
		return nil
	}
	return s.Close()
}
