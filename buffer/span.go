package buffer

// Span is a writable window into the live-region tail of exactly one
// page. It does not own memory; Free aliases the page's data between the
// write watermark and the declared end.
type Span struct {
	Page *Page
	Free []byte
}

func (s *Span) Len() int { return len(s.Free) }
