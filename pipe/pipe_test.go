package pipe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minio/highwayhash"
)

var hashKey = make([]byte, 32)

func TestPipeRoundTrip(t *testing.T) {
	r, w := New(256, 0)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("paged bytes flow "), 100)
	done := make(chan error, 1)
	go func() {
		if _, err := w.WriteAsync(ctx, payload); err != nil {
			done <- err
			return
		}
		done <- w.CloseAsync(ctx)
	}()

	var got []byte
	buf := make([]byte, 97)
	for {
		n, err := r.ReadAsync(ctx, buf)
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			break
		}
		got = append(got, buf[:n]...)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if highwayhash.Sum64(got, hashKey) != highwayhash.Sum64(payload, hashKey) {
		t.Fatal("reads diverge from writes")
	}
}

func TestPipeBackpressure(t *testing.T) {
	const pageSize = 1024
	r, w := New(pageSize, 4*pageSize)
	ctx := context.Background()

	var wrote atomic.Int64
	done := make(chan struct{})
	var want []byte
	blocks := make([][]byte, 10)
	for i := range blocks {
		blocks[i] = bytes.Repeat([]byte{byte(i)}, pageSize)
		want = append(want, blocks[i]...)
	}
	go func() {
		defer close(done)
		for _, b := range blocks {
			if _, err := w.WriteAsync(ctx, b); err != nil {
				t.Error(err)
				return
			}
			wrote.Add(int64(len(b)))
		}
		if err := w.FlushAsync(ctx); err != nil {
			t.Error(err)
			return
		}
		_ = w.CloseAsync(ctx)
	}()

	// Let the writer run into the threshold while the reader sleeps.
	time.Sleep(100 * time.Millisecond)
	if wrote.Load() >= int64(len(want)) {
		t.Fatal("writer never suspended on backpressure")
	}

	var got []byte
	buf := make([]byte, 512)
	for {
		n, err := r.ReadAsync(ctx, buf)
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			break
		}
		got = append(got, buf[:n]...)
	}
	<-done
	if !bytes.Equal(got, want) {
		t.Fatal("drained bytes diverge from written bytes")
	}
}

func TestPipeEOFWithEmptyBuffers(t *testing.T) {
	r, w := New(0, 0)
	ctx := context.Background()
	if err := w.CloseAsync(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := r.ReadAsync(ctx, make([]byte, 8))
	if err != nil || n != 0 {
		t.Fatal("expected clean EOF, got", n, err)
	}
}

func TestPipeReadCancellation(t *testing.T) {
	r, w := New(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ReadAsync(ctx, make([]byte, 8))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected deadline, got", err)
	}
	// The failed read must leave the pipe usable.
	bg := context.Background()
	if _, err := w.WriteAsync(bg, []byte("late")); err != nil {
		t.Fatal(err)
	}
	if err := w.FlushAsync(bg); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 8)
	n, err := r.ReadAsync(bg, buf)
	if err != nil || string(buf[:n]) != "late" {
		t.Fatalf("pipe unusable after cancellation: %q %v", buf[:n], err)
	}
}

func TestPipeWriteCancellation(t *testing.T) {
	_, w := New(64, 64)
	bg := context.Background()
	if _, err := w.WriteAsync(bg, bytes.Repeat([]byte{1}, 64)); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(bg, 20*time.Millisecond)
	defer cancel()
	// Larger than the span so the write must drain into the full pipe.
	_, err := w.WriteAsync(ctx, bytes.Repeat([]byte{2}, 128))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected deadline, got", err)
	}
}

func TestReaderImplementsIOReader(t *testing.T) {
	r, w := New(0, 0)
	ctx := context.Background()
	go func() {
		_, _ = w.WriteAsync(ctx, []byte("io reader bridge"))
		_ = w.CloseAsync(ctx)
	}()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "io reader bridge" {
		t.Fatalf("got %q", got)
	}
}

func TestPipeWriteAfterClose(t *testing.T) {
	_, w := New(0, 0)
	ctx := context.Background()
	if err := w.CloseAsync(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("write after close must panic")
		}
	}()
	_, _ = w.WriteAsync(ctx, []byte("x"))
}

func TestSyncCloseDrainsIntoPipe(t *testing.T) {
	r, w := New(0, 0)
	// Sync writes on an async-only sink buffer in the stream's pages;
	// a sync close must still drain them through the async write slot.
	if _, err := w.Write([]byte("buffered")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	n, err := r.ReadAsync(context.Background(), buf)
	if err != nil || string(buf[:n]) != "buffered" {
		t.Fatalf("close dropped buffered bytes: %q %v", buf[:n], err)
	}
	n, err = r.ReadAsync(context.Background(), buf)
	if err != nil || n != 0 {
		t.Fatal("expected EOF after drain, got", n, err)
	}
}
