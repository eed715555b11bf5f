package stream

import (
	"github.com/moontrade/faststream/buffer"
	"github.com/moontrade/faststream/pkg/pmath"
)

// WriteCursor is a handle onto a fixed-size window carved out of the
// stream, backfilled after the surrounding bytes have been written. The
// stream refuses to drain pages while any cursor is unfinalized.
//
// A cursor that did not fit the span at creation holds its remainder at
// the front of a later page until the first write reaches it.
type WriteCursor struct {
	s    *OutputStream
	span []byte
	next *buffer.Page
	done bool
}

// ReserveFixed carves an n byte window from the front of the current
// span and advances the stream past it. When n exceeds the span, the
// reservation straddles into a fresh page (requires buffers).
func (o *OutputStream) ReserveFixed(n int) *WriteCursor {
	o.checkOpen()
	if n <= 0 {
		defect("reservation of %d bytes", n)
	}
	c := &WriteCursor{s: o}
	if n <= len(o.span.Free) {
		c.span = o.span.Free[:n:n]
		o.span.Free = o.span.Free[n:]
	} else {
		if o.buffers == nil {
			defect("reservation of %d bytes exceeds fixed region runway of %d", n, len(o.span.Free))
		}
		// First fragment takes the whole remaining span; the deficit
		// owns the front of a fresh page until the cursor reaches it.
		c.span = o.span.Free
		deficit := n - len(o.span.Free)
		p := o.buffers.AddSplitPage(deficit)
		c.next = p
		o.span = buffer.Span{Page: p, Free: p.Data[deficit:p.End]}
		o.spanEndPos += int64(len(p.Data))
	}
	o.extCursors++
	o.stats.Reserves.Incr()
	return c
}

// Remaining is the count of reserved bytes not yet backfilled.
func (c *WriteCursor) Remaining() int {
	r := len(c.span)
	if c.next != nil {
		r += int(-c.next.Start)
	}
	return r
}

func (c *WriteCursor) checkUsable(n int) {
	if c.done {
		defect("cursor already finalized")
	}
	if r := c.Remaining(); n > r {
		defect("write of %d bytes past cursor window of %d", n, r)
	}
	c.s.checkOpen()
}

// WriteByte backfills a single byte.
func (c *WriteCursor) WriteByte(b byte) {
	c.checkUsable(1)
	if len(c.span) == 0 {
		c.advance()
	}
	c.span[0] = b
	c.span = c.span[1:]
}

// Write backfills len(p) bytes. Writing past the reserved window is a
// defect.
func (c *WriteCursor) Write(p []byte) {
	c.checkUsable(len(p))
	for len(p) > 0 {
		if len(c.span) == 0 {
			c.advance()
		}
		n := copy(c.span, p)
		c.span = c.span[n:]
		p = p[n:]
	}
}

// advance moves a split cursor onto its second fragment, reclaiming the
// page front the reservation owns and clearing the split marker.
func (c *WriteCursor) advance() {
	p := c.next
	c.next = nil
	deficit := -p.Start
	p.Start = 0
	c.span = p.Data[:deficit:deficit]
}

// Finalize backfills the remaining window with exactly p and closes the
// cursor. len(p) must equal Remaining().
func (c *WriteCursor) Finalize(p []byte) {
	if c.done {
		defect("cursor already finalized")
	}
	if len(p) != c.Remaining() {
		defect("finalize of %d bytes into window of %d", len(p), c.Remaining())
	}
	c.Write(p)
	c.done = true
	c.s.cursorFinalized()
}

// Finish closes a cursor whose window was fully backfilled through
// Write calls.
func (c *WriteCursor) Finish() {
	if c.done {
		defect("cursor already finalized")
	}
	if r := c.Remaining(); r != 0 {
		defect("finish with %d unwritten reserved bytes", r)
	}
	c.done = true
	c.s.cursorFinalized()
}

func (o *OutputStream) cursorFinalized() {
	o.extCursors--
	o.stats.Finalizes.Incr()
}

// VarSizeWriteCursor reserves up to a maximum byte count and is
// finalized once with the actual bytes, which may be shorter. The
// reservation occupies either the tail or the head of a single page so
// the overestimate vanishes by adjusting one offset; unused bytes leave
// no trace between neighbors.
type VarSizeWriteCursor struct {
	s        *OutputStream
	page     *buffer.Page
	start    int32
	reserved int32
	atTail   bool
	done     bool
}

// ReserveVar carves a window of up to maxN bytes. Requires a buffered
// stream.
func (o *OutputStream) ReserveVar(maxN int) *VarSizeWriteCursor {
	o.checkOpen()
	if maxN <= 0 {
		defect("reservation of %d bytes", maxN)
	}
	if o.buffers == nil {
		defect("var-size reservation on a stream without buffers")
	}
	c := &VarSizeWriteCursor{s: o, reserved: int32(maxN)}
	if maxN <= len(o.span.Free) {
		// The carve becomes the tail of the ended page, which turns into
		// a view; the stream continues on a new tail page that shares
		// the same data and owns it.
		pg := o.span.Page
		w := pg.End - int32(len(o.span.Free))
		tail := o.buffers.SplitLastPageAt(w + int32(maxN))
		o.span = buffer.Span{Page: tail, Free: tail.Data[tail.Start:tail.End]}
		c.page = pg
		c.start = w
		c.atTail = true
	} else {
		// Head placement: the reservation ends at a fixed offset and
		// grows backwards on finalize.
		o.endPage()
		pos := o.spanEndPos
		p := o.buffers.AddWritablePage(pmath.CeilToMultiple(maxN, o.buffers.PageSize()))
		o.span = buffer.Span{Page: p, Free: p.Data[maxN:p.End]}
		o.spanEndPos = pos + int64(p.End)
		c.page = p
	}
	o.extCursors++
	o.stats.Reserves.Incr()
	return c
}

// Reserved is the maximum byte count the cursor may be finalized with.
func (c *VarSizeWriteCursor) Reserved() int { return int(c.reserved) }

// Finalize backfills the reservation with p, len(p) <= Reserved(), and
// closes the cursor. The overestimate is surrendered by adjusting the
// holding page's live region.
func (c *VarSizeWriteCursor) Finalize(p []byte) {
	if c.done {
		defect("cursor already finalized")
	}
	if len(p) > int(c.reserved) {
		defect("finalize of %d bytes into reservation of %d", len(p), c.reserved)
	}
	c.s.checkOpen()
	over := c.reserved - int32(len(p))
	if c.atTail {
		copy(c.page.Data[c.start:], p)
		c.page.End = c.start + int32(len(p))
	} else {
		c.page.Start = over
		copy(c.page.Data[over:], p)
	}
	// The surrendered overestimate never existed in the logical stream.
	c.s.spanEndPos -= int64(over)
	c.done = true
	c.s.cursorFinalized()
}
