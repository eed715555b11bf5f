package stream

import (
	"github.com/moontrade/faststream/buffer"
	"github.com/moontrade/faststream/pkg/util"
)

// GetOutput returns every byte written so far as one contiguous slice
// and resets the stream for fresh writes. A single heap page whose live
// region starts at its base detaches zero-copy; anything else is
// concatenated into a new allocation. Only buffered memory streams may
// extract output, and never with outstanding reservations.
func (o *OutputStream) GetOutput() []byte {
	out := o.beginExtract()
	if out != nil {
		return out
	}
	result := make([]byte, o.Pos())
	off := 0
	_ = o.buffers.ConsumeAllPages(func(p []byte) error {
		off += copy(result[off:], p)
		return nil
	})
	o.resetAfterExtract()
	return result
}

// ConsumeOutputs yields each page's live region in stream order without
// allocating, then resets the stream. The slices are only valid inside
// fn. A panic out of fn is converted, reported through the
// unhandled-error handler, and leaves the stream pristine with the
// unconsumed pages dropped.
func (o *OutputStream) ConsumeOutputs(fn func(p []byte)) {
	o.checkExtractable()
	o.endPage()
	defer func() {
		if e := recover(); e != nil {
			reportUnhandled(util.PanicToError(e))
		}
		o.buffers.ReleaseAll()
		o.resetAfterExtract()
	}()
	_ = o.buffers.ConsumeAllPages(func(p []byte) error {
		fn(p)
		return nil
	})
}

func (o *OutputStream) checkExtractable() {
	o.checkOpen()
	if o.buffers == nil {
		defect("output extraction requires a buffered memory stream")
	}
	if o.sink != nil {
		defect("output extraction on a sink-backed stream")
	}
	if o.extCursors > 0 {
		defect("output extraction with %d outstanding reservations", o.extCursors)
	}
}

// beginExtract finalizes pages and attempts the zero-copy detach,
// returning nil when the caller must concatenate.
func (o *OutputStream) beginExtract() []byte {
	o.checkExtractable()
	o.endPage()
	if o.buffers.Count() == 1 {
		front := o.buffers.Front()
		if front.Start == 0 && front.Kind == buffer.PageKindHeap {
			out := front.Live()
			o.buffers.ReleaseAll()
			o.resetAfterExtract()
			return out
		}
	}
	return nil
}

func (o *OutputStream) resetAfterExtract() {
	o.span = buffer.Span{}
	o.spanEndPos = 0
}
