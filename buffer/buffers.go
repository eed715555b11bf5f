package buffer

import (
	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/moontrade/faststream/config"
	"github.com/moontrade/faststream/pkg/pmath"
)

// PageBuffers is an ordered queue of pages. The live bytes of its pages,
// read front to back, form the logical byte stream. All pages but the
// last have a finalized End.
type PageBuffers struct {
	pages    []*Page
	pageSize int32
	pooled   bool
	eof      bool
}

// New returns empty buffers that allocate pages of at least pageSize
// bytes. Pooled buffers draw page storage from mcache and recycle it on
// consume; non-pooled buffers allocate heap pages that may be detached.
func New(pageSize int, pooled bool) *PageBuffers {
	if pageSize <= 0 {
		pageSize = config.PageSize
	}
	return &PageBuffers{pageSize: int32(pageSize), pooled: pooled}
}

func (b *PageBuffers) PageSize() int { return int(b.pageSize) }
func (b *PageBuffers) Count() int    { return len(b.pages) }
func (b *PageBuffers) EOF() bool     { return b.eof }
func (b *PageBuffers) SetEOF()       { b.eof = true }

func (b *PageBuffers) Last() *Page {
	if len(b.pages) == 0 {
		return nil
	}
	return b.pages[len(b.pages)-1]
}

func (b *PageBuffers) Front() *Page {
	if len(b.pages) == 0 {
		return nil
	}
	return b.pages[0]
}

// Len reports the total live bytes across all pages.
func (b *PageBuffers) Len() int64 {
	var n int64
	for _, p := range b.pages {
		n += int64(p.Len())
	}
	return n
}

func (b *PageBuffers) alloc(size int) []byte {
	if b.pooled {
		return mcache.Malloc(size)
	}
	return make([]byte, size)
}

// AddWritablePage appends a page of at least max(size, pageSize) bytes
// whose live region is initially the full allocation, and returns it.
func (b *PageBuffers) AddWritablePage(size int) *Page {
	if size < int(b.pageSize) {
		size = int(b.pageSize)
	}
	kind := PageKindHeap
	if b.pooled {
		kind = PageKindPooled
	}
	p := &Page{Data: b.alloc(size), Start: 0, End: int32(size), Kind: kind}
	b.pages = append(b.pages, p)
	return p
}

// AddSplitPage appends a page sized to a whole pageSize multiple covering
// deficit, with its front deficit bytes owed to a reservation that began
// on the previous page. The caller writes beyond the deficit.
func (b *PageBuffers) AddSplitPage(deficit int) *Page {
	size := pmath.CeilToMultiple(max(deficit, int(b.pageSize)), int(b.pageSize))
	kind := PageKindHeap
	if b.pooled {
		kind = PageKindPooled
	}
	p := &Page{Data: b.alloc(size), Start: -int32(deficit), End: int32(size), Kind: kind}
	b.pages = append(b.pages, p)
	return p
}

// EnsureRunway guarantees a trailing writable window of at least extra
// bytes. Only valid while no runway is recorded by the owning stream.
func (b *PageBuffers) EnsureRunway(extra int) *Page {
	last := b.Last()
	if last != nil && int(last.End-last.Start) >= extra {
		return last
	}
	return b.AddWritablePage(pmath.CeilToMultiple(extra, int(b.pageSize)))
}

// EndLastPageAt finalizes the last page's live region, leaving unwritten
// trailing bytes out of it. Idempotent when unwritten is zero.
func (b *PageBuffers) EndLastPageAt(unwritten int32) {
	last := b.Last()
	if last == nil || unwritten == 0 {
		return
	}
	last.End -= unwritten
}

// SplitLastPageAt ends the last page at offset at and begins a new
// logical page sharing the same data for the tail. Ownership of the data
// moves to the tail page so a front-to-back consume releases it exactly
// once; the ended page becomes a view. Adjacent halves yield contiguous
// bytes.
func (b *PageBuffers) SplitLastPageAt(at int32) *Page {
	last := b.Last()
	tail := &Page{Data: last.Data, Start: at, End: last.End, Kind: last.Kind}
	last.End = at
	last.Kind = PageKindView
	b.pages = append(b.pages, tail)
	return tail
}

// ConsumeAllPages invokes fn with each page's live region front to back,
// dropping each page as it goes. The queue is empty afterwards unless fn
// fails, in which case unconsumed pages remain.
func (b *PageBuffers) ConsumeAllPages(fn func(p []byte) error) error {
	for len(b.pages) > 0 {
		p := b.pages[0]
		if p.Len() > 0 {
			if err := fn(p.Live()); err != nil {
				return err
			}
		}
		b.pages[0] = nil
		b.pages = b.pages[1:]
		p.release()
	}
	b.pages = nil
	return nil
}

// ConsumeFront drops n live bytes from the front page, releasing it once
// exhausted.
func (b *PageBuffers) ConsumeFront(n int32) {
	p := b.pages[0]
	p.Start += n
	if p.Start == p.End {
		b.pages[0] = nil
		b.pages = b.pages[1:]
		p.release()
	}
}

// ReleaseAll drops every page without yielding its contents.
func (b *PageBuffers) ReleaseAll() {
	for _, p := range b.pages {
		p.release()
	}
	b.pages = nil
}

// Append copies p into the buffers, growing the written watermark of the
// last page and appending pages as needed. Unlike stream pages, appended
// pages keep End as the watermark so a reader can consume [Start, End)
// directly. Used by pipes.
func (b *PageBuffers) Append(p []byte) {
	for len(p) > 0 {
		last := b.Last()
		if last == nil || int(last.End) == len(last.Data) {
			last = b.AddWritablePage(len(p))
			last.End = 0
		}
		n := copy(last.Data[last.End:], p)
		last.End += int32(n)
		p = p[n:]
	}
}
