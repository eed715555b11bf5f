// Package pipe connects a producing output stream to a consuming reader
// over shared page buffers with cooperative backpressure and EOF.
package pipe

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/moontrade/faststream/buffer"
	"github.com/moontrade/faststream/config"
	"github.com/moontrade/faststream/stream"
)

// Pipe is a single-producer single-consumer byte channel. The writer
// side is an OutputStream draining through the pipe's async sink slots;
// the reader side consumes the buffered pages. Each side owns one wait
// slot holding at most one parked goroutine.
type Pipe struct {
	max int
	_   cpu.CacheLinePad

	mu       sync.Mutex
	buffers  *buffer.PageBuffers
	buffered int
	reader   chan struct{}
	writer   chan struct{}
}

// New returns the reader side and the writer-side output stream of a
// pipe. pageSize <= 0 selects config.PageSize; maxBuffered <= 0 selects
// config.MaxBufferedPages pages. Once maxBuffered bytes sit unread,
// writer-side drains suspend until the reader catches up.
func New(pageSize, maxBuffered int) (*Reader, *stream.OutputStream) {
	if pageSize <= 0 {
		pageSize = config.PageSize
	}
	if maxBuffered <= 0 {
		maxBuffered = config.MaxBufferedPages * pageSize
	}
	p := &Pipe{
		max:     maxBuffered,
		buffers: buffer.New(pageSize, true),
	}
	sink := &stream.Sink{
		WriteAsync: p.writeAsync,
		FlushAsync: p.flushAsync,
		CloseSync:  p.close,
		CloseAsync: func(context.Context) error { return p.close() },
	}
	return &Reader{p: p}, stream.NewSinkOutput(sink, pageSize)
}

// signal completes the slot's parked goroutine exactly once; on an
// empty slot it is a no-op. Caller holds mu.
func (p *Pipe) signal(slot *chan struct{}) {
	if ch := *slot; ch != nil {
		*slot = nil
		close(ch)
	}
}

// park suspends the caller on slot until signaled or ctx is done. On a
// nil return mu is held again; on error it is released and the pipe is
// exactly as it was before the call.
func (p *Pipe) park(ctx context.Context, slot *chan struct{}) error {
	ch := make(chan struct{})
	*slot = ch
	p.mu.Unlock()
	select {
	case <-ch:
		p.mu.Lock()
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		if *slot == ch {
			*slot = nil
		}
		p.mu.Unlock()
		return ctx.Err()
	}
}

func (p *Pipe) writeAsync(ctx context.Context, b []byte) error {
	p.mu.Lock()
	for p.buffered > 0 && p.buffered+len(b) > p.max {
		if p.buffers.EOF() {
			p.mu.Unlock()
			return os.ErrClosed
		}
		if err := p.park(ctx, &p.writer); err != nil {
			return err
		}
	}
	if p.buffers.EOF() {
		p.mu.Unlock()
		return os.ErrClosed
	}
	p.buffers.Append(b)
	p.buffered += len(b)
	p.signal(&p.reader)
	p.mu.Unlock()
	return nil
}

func (p *Pipe) flushAsync(context.Context) error {
	p.mu.Lock()
	p.signal(&p.reader)
	p.mu.Unlock()
	return nil
}

func (p *Pipe) close() error {
	p.mu.Lock()
	p.buffers.SetEOF()
	p.signal(&p.reader)
	p.signal(&p.writer)
	p.mu.Unlock()
	return nil
}

// Reader is the consuming side of a pipe.
type Reader struct {
	p *Pipe
}

// Buffered reports the bytes written but not yet read.
func (r *Reader) Buffered() int {
	r.p.mu.Lock()
	n := r.p.buffered
	r.p.mu.Unlock()
	return n
}

// ReadAsync delivers up to len(dst) bytes, suspending until at least one
// byte or EOF is available. At EOF with nothing buffered it returns
// 0, nil, and every later call returns 0, nil as well.
func (r *Reader) ReadAsync(ctx context.Context, dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	p := r.p
	p.mu.Lock()
	for p.buffered == 0 && !p.buffers.EOF() {
		p.signal(&p.writer)
		if err := p.park(ctx, &p.reader); err != nil {
			return 0, err
		}
	}
	n := 0
	for n < len(dst) && p.buffered > 0 {
		front := p.buffers.Front()
		m := copy(dst[n:], front.Live())
		p.buffers.ConsumeFront(int32(m))
		p.buffered -= m
		n += m
	}
	if n > 0 {
		p.signal(&p.writer)
	}
	p.mu.Unlock()
	return n, nil
}

// Read implements io.Reader over ReadAsync, mapping EOF to io.EOF.
func (r *Reader) Read(dst []byte) (int, error) {
	n, err := r.ReadAsync(context.Background(), dst)
	if err != nil {
		return n, err
	}
	if n == 0 && len(dst) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Close tears the pipe down from the reader side; a parked or future
// writer observes os.ErrClosed.
func (r *Reader) Close() error {
	return r.p.close()
}
