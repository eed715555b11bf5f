package stream

import (
	"context"
	"os"

	logger "github.com/moontrade/log"

	"github.com/moontrade/faststream/buffer"
	"github.com/moontrade/faststream/pkg/timex"
)

// OutputStream is a forward-only paged byte stream. Bytes land in the
// current span, a writable window into the last page; completed pages
// drain to the sink once no reservations are outstanding. The cursor
// never moves backwards except through reservation backfill.
//
// A stream must not be used from more than one goroutine at a time.
type OutputStream struct {
	span       buffer.Span
	spanEndPos int64
	buffers    *buffer.PageBuffers
	sink       *Sink
	extCursors int32
	state      State
	err        error
	stats      Stats
}

// NewMemoryOutput returns a stream that buffers indefinitely; the
// accumulated bytes are retrieved with GetOutput or ConsumeOutputs.
// pageSize <= 0 selects config.PageSize.
func NewMemoryOutput(pageSize int) *OutputStream {
	return &OutputStream{buffers: buffer.New(pageSize, false)}
}

// NewUnsafeOutput returns a stream over the caller's fixed region. The
// stream does not own buf and cannot grow; exhausting it is a defect.
func NewUnsafeOutput(buf []byte) *OutputStream {
	return &OutputStream{
		span:       buffer.Span{Free: buf},
		spanEndPos: int64(len(buf)),
	}
}

// NewSinkOutput returns a stream that drains completed pages through
// sink. Page storage is pooled and recycled as pages drain.
func NewSinkOutput(sink *Sink, pageSize int) *OutputStream {
	return &OutputStream{buffers: buffer.New(pageSize, true), sink: sink}
}

// Pos is the total count of bytes logically written, reservations
// included.
func (o *OutputStream) Pos() int64 {
	return o.spanEndPos - int64(len(o.span.Free))
}

// Runway is the remaining writable bytes in the current span.
func (o *OutputStream) Runway() int {
	return len(o.span.Free)
}

func (o *OutputStream) Stats() *Stats { return &o.stats }

func (o *OutputStream) checkOpen() {
	switch o.state.Load() {
	case StateOpen:
	case StateFailed:
		defect("stream failed: %v", o.err)
	default:
		defect("stream is closed")
	}
}

func (o *OutputStream) fail(err error) {
	o.err = err
	o.state.Store(StateFailed)
	o.stats.Errors.Incr()
}

// EnsureRunway guarantees the current span holds at least extra writable
// bytes. Valid only before any bytes have been written.
func (o *OutputStream) EnsureRunway(extra int) {
	o.checkOpen()
	if o.buffers == nil {
		if extra > len(o.span.Free) {
			defect("runway of %d exceeds fixed region of %d", extra, len(o.span.Free))
		}
		return
	}
	if o.Pos() != 0 || o.buffers.Count() > 0 {
		defect("runway may only be ensured before writes")
	}
	p := o.buffers.EnsureRunway(extra)
	o.span = buffer.Span{Page: p, Free: p.Data[p.Start:p.End]}
	o.spanEndPos = int64(len(o.span.Free))
}

// endPage finalizes the last page's live region at the current write
// position and detaches the span.
func (o *OutputStream) endPage() {
	if o.span.Page == nil {
		o.span = buffer.Span{}
		return
	}
	unwritten := int32(len(o.span.Free))
	o.buffers.EndLastPageAt(unwritten)
	o.spanEndPos -= int64(unwritten)
	o.span = buffer.Span{}
}

// appendPage opens a fresh page sized for at least remaining bytes and
// points the span at its full window.
func (o *OutputStream) appendPage(remaining int) {
	p := o.buffers.AddWritablePage(remaining)
	o.span = buffer.Span{Page: p, Free: p.Data[0:p.End]}
	o.spanEndPos += int64(p.End)
}

// drainSync emits all completed pages, then extra bytes that never
// landed in a page, and replenishes the span from a fresh page.
// Precondition: no outstanding reservations and a sync-capable sink.
func (o *OutputStream) drainSync(extra []byte) error {
	if o.sink.WriteSync == nil {
		defect("sink has no synchronous write")
	}
	sw := timex.NewStopWatch()
	err := o.buffers.ConsumeAllPages(func(p []byte) error {
		o.stats.DrainedBytes.Add(int64(len(p)))
		return o.sink.WriteSync(p)
	})
	if err == nil && len(extra) > 0 {
		o.stats.DrainedBytes.Add(int64(len(extra)))
		err = o.sink.WriteSync(extra)
	}
	o.stats.Drains.Incr()
	o.stats.DrainsDur.Add(sw.Elapsed())
	if err != nil {
		o.fail(err)
		return err
	}
	o.spanEndPos += int64(len(extra))
	o.appendPage(0)
	return nil
}

// drainAsync mirrors drainSync through the sink's async slots, awaiting
// each write.
func (o *OutputStream) drainAsync(ctx context.Context, extra []byte) error {
	if o.sink.WriteAsync == nil {
		defect("sink has no asynchronous write")
	}
	sw := timex.NewStopWatch()
	err := o.buffers.ConsumeAllPages(func(p []byte) error {
		o.stats.DrainedBytes.Add(int64(len(p)))
		return o.sink.WriteAsync(ctx, p)
	})
	if err == nil && len(extra) > 0 {
		o.stats.DrainedBytes.Add(int64(len(extra)))
		err = o.sink.WriteAsync(ctx, extra)
	}
	o.stats.Drains.Incr()
	o.stats.DrainsDur.Add(sw.Elapsed())
	if err != nil {
		// An interrupted sink write leaves the stream failed; close is
		// the only valid subsequent operation.
		o.fail(err)
		return err
	}
	o.spanEndPos += int64(len(extra))
	o.appendPage(0)
	return nil
}

// drainableSync reports whether completed pages may flow to the sink
// through its sync write now. A sink without the matching slot leaves
// the stream buffering; absent async is never emulated and vice versa.
func (o *OutputStream) drainableSync() bool {
	return o.sink != nil && o.sink.WriteSync != nil && o.extCursors == 0
}

func (o *OutputStream) drainableAsync() bool {
	return o.sink != nil && o.sink.WriteAsync != nil && o.extCursors == 0
}

// WriteByte writes a single byte.
func (o *OutputStream) WriteByte(c byte) error {
	if len(o.span.Free) > 0 {
		o.span.Free[0] = c
		o.span.Free = o.span.Free[1:]
		return nil
	}
	return o.writeByteSlow(c)
}

func (o *OutputStream) writeByteSlow(c byte) error {
	o.checkOpen()
	if o.buffers == nil {
		defect("fixed output region exhausted")
	}
	if !o.drainableSync() {
		o.appendPage(1)
	} else {
		o.endPage()
		if err := o.drainSync(nil); err != nil {
			return err
		}
	}
	o.span.Free[0] = c
	o.span.Free = o.span.Free[1:]
	return nil
}

// Write writes p. It implements io.Writer; short writes occur only with
// an error.
func (o *OutputStream) Write(p []byte) (int, error) {
	if len(p) <= len(o.span.Free) {
		copy(o.span.Free, p)
		o.span.Free = o.span.Free[len(p):]
		return len(p), nil
	}
	return o.writeSlow(p, false, nil)
}

// WriteAsync writes p, draining through the sink's async slots when
// capacity demands it.
func (o *OutputStream) WriteAsync(ctx context.Context, p []byte) (int, error) {
	if len(p) <= len(o.span.Free) {
		copy(o.span.Free, p)
		o.span.Free = o.span.Free[len(p):]
		return len(p), nil
	}
	return o.writeSlow(p, true, ctx)
}

func (o *OutputStream) writeSlow(p []byte, async bool, ctx context.Context) (int, error) {
	o.checkOpen()
	if o.buffers == nil {
		defect("write of %d bytes exceeds fixed region runway of %d", len(p), len(o.span.Free))
	}
	n := len(p)
	canDrain := o.drainableSync()
	if async {
		canDrain = o.drainableAsync()
	}
	if !canDrain {
		// Fill the span, then open a page large enough that the
		// remainder lands whole.
		m := copy(o.span.Free, p)
		o.span.Free = o.span.Free[m:]
		p = p[m:]
		o.appendPage(len(p))
		copy(o.span.Free, p)
		o.span.Free = o.span.Free[len(p):]
		return n, nil
	}
	// Everything buffered so far flows out ahead of p; p itself goes
	// straight through without landing in a page.
	o.endPage()
	var err error
	if async {
		err = o.drainAsync(ctx, p)
	} else {
		err = o.drainSync(p)
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// WriteString writes s.
func (o *OutputStream) WriteString(s string) (int, error) {
	if len(s) <= len(o.span.Free) {
		copy(o.span.Free, s)
		o.span.Free = o.span.Free[len(s):]
		return len(s), nil
	}
	return o.writeSlow([]byte(s), false, nil)
}

// Flush finalizes and drains every page, then forces the sink's own
// flush when it has one. A no-op for sinkless streams. Flushing with
// outstanding reservations is a defect.
func (o *OutputStream) Flush() error {
	o.checkOpen()
	if o.extCursors > 0 {
		defect("flush with %d outstanding reservations", o.extCursors)
	}
	if o.sink == nil {
		return nil
	}
	o.endPage()
	if err := o.drainSync(nil); err != nil {
		return err
	}
	o.stats.Flushes.Incr()
	if o.sink.FlushSync != nil {
		if err := o.sink.FlushSync(); err != nil {
			o.fail(err)
			return err
		}
	}
	return nil
}

// FlushAsync mirrors Flush through the sink's async slots.
func (o *OutputStream) FlushAsync(ctx context.Context) error {
	o.checkOpen()
	if o.extCursors > 0 {
		defect("flush with %d outstanding reservations", o.extCursors)
	}
	if o.sink == nil {
		return nil
	}
	o.endPage()
	if err := o.drainAsync(ctx, nil); err != nil {
		return err
	}
	o.stats.Flushes.Incr()
	if o.sink.FlushAsync != nil {
		if err := o.sink.FlushAsync(ctx); err != nil {
			o.fail(err)
			return err
		}
	}
	return nil
}

// Close drains remaining pages through the sink and releases it. While
// any reservation is unfinalized nothing is drained: every buffered page
// is discarded, including bytes written before the reservation.
func (o *OutputStream) Close() error {
	return o.close(nil, false)
}

// CloseAsync drains and closes through the sink's async slots.
func (o *OutputStream) CloseAsync(ctx context.Context) error {
	return o.close(ctx, true)
}

func (o *OutputStream) close(ctx context.Context, async bool) error {
	switch o.state.Load() {
	case StateClosed:
		return os.ErrClosed
	case StateOpen, StateFailed:
	}
	var err error
	if o.state.Load() == StateOpen && o.extCursors == 0 && o.buffers != nil && o.sink != nil {
		// Drain through whichever write slot the sink carries,
		// preferring the requested mode; buffered pages never vanish
		// on close.
		o.endPage()
		switch {
		case o.sink.WriteAsync != nil && (async || o.sink.WriteSync == nil):
			if ctx == nil {
				ctx = context.Background()
			}
			err = o.drainAsync(ctx, nil)
		case o.sink.WriteSync != nil:
			err = o.drainSync(nil)
		case o.buffers.Len() > 0:
			logger.Warn("closing stream with undrained pages and no sink write capability")
		}
	} else if o.extCursors > 0 {
		logger.Warn("closing stream with outstanding reservations")
	}
	o.span = buffer.Span{}
	if o.buffers != nil {
		o.buffers.ReleaseAll()
	}
	sink := o.sink
	o.sink = nil
	o.state.Store(StateClosed)
	if sink != nil {
		var cerr error
		if async && sink.CloseAsync != nil {
			cerr = sink.CloseAsync(ctx)
		} else if sink.CloseSync != nil {
			cerr = sink.CloseSync()
		}
		if err == nil {
			err = cerr
		}
	}
	return err
}
