package buffer

import "github.com/bytedance/gopkg/lang/mcache"

type PageKind int8

const (
	// PageKindHeap pages own a GC managed allocation. A heap page may be
	// detached and handed to the caller during zero-copy extraction.
	PageKindHeap PageKind = iota
	// PageKindPooled pages borrow their data from mcache and are recycled
	// when released.
	PageKindPooled
	// PageKindView pages alias the data of a later page produced by a
	// split. Releasing a view never frees memory; the owning page does.
	PageKindView
)

// Page is a contiguous byte region with a live sub-range [Start, End).
//
// Start is negative while a reservation that began on the previous page
// still owns the front of this one; its magnitude is the number of owed
// bytes. End is not meaningful until that transient is resolved.
type Page struct {
	Data  []byte
	Start int32
	End   int32
	Kind  PageKind
}

// Live returns the page's live region. Must not be called during the
// split transient (Start < 0).
func (p *Page) Live() []byte {
	return p.Data[p.Start:p.End]
}

func (p *Page) Len() int32 {
	return p.End - p.Start
}

func (p *Page) release() {
	if p.Kind == PageKindPooled {
		mcache.Free(p.Data)
	}
	p.Data = nil
}
