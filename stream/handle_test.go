package stream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHandleCloseWait(t *testing.T) {
	closed := make(chan struct{})
	sink := &Sink{
		WriteAsync: func(ctx context.Context, p []byte) error { return nil },
		CloseAsync: func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			close(closed)
			return nil
		},
	}
	h := NewHandle(NewSinkOutput(sink, 0))
	if err := h.Close(WaitAsyncClose); err != nil {
		t.Fatal(err)
	}
	select {
	case <-closed:
	default:
		t.Fatal("wait close returned before the sink close completed")
	}
	if err := h.Close(WaitAsyncClose); !errors.Is(err, os.ErrClosed) {
		t.Fatal("second close should report closed, got", err)
	}
}

func TestHandleCloseDontWait(t *testing.T) {
	errc := make(chan error, 1)
	SetUnhandledErrorHandler(func(err error) { errc <- err })
	defer SetUnhandledErrorHandler(nil)

	boom := errors.New("close failed")
	sink := &Sink{
		WriteAsync: func(ctx context.Context, p []byte) error { return nil },
		CloseAsync: func(ctx context.Context) error { return boom },
	}
	h := NewHandle(NewSinkOutput(sink, 0))
	if err := h.Close(DontWaitAsyncClose); err != nil {
		t.Fatal("nowait close must not surface errors directly:", err)
	}
	select {
	case err := <-errc:
		if !errors.Is(err, boom) {
			t.Fatal("unexpected error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close error never reached the unhandled-error handler")
	}
}

func TestWriteAfterClosePanics(t *testing.T) {
	s := NewMemoryOutput(0)
	_, _ = s.WriteString("x")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("write after close must panic")
		}
	}()
	_, _ = s.WriteString("y")
}

func TestCloseAsyncDrainsSyncOnlySink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drain.bin")
	h, err := OpenFileOutput(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Open a page first so the write lands in it instead of draining
	// straight through on an empty span.
	h.Stream().EnsureRunway(len("tail bytes"))
	if _, err := h.Stream().WriteString("tail bytes"); err != nil {
		t.Fatal(err)
	}
	// The file sink has no async write slot; close must fall back to
	// the sync drain instead of dropping the buffered page.
	if err := h.Stream().CloseAsync(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "tail bytes" {
		t.Fatalf("buffered bytes lost on close: %q", got)
	}
}

func TestCloseDontWaitRecoversPanic(t *testing.T) {
	errc := make(chan error, 1)
	SetUnhandledErrorHandler(func(err error) { errc <- err })
	defer SetUnhandledErrorHandler(nil)

	sink := &Sink{
		WriteAsync: func(ctx context.Context, p []byte) error { return nil },
		CloseAsync: func(ctx context.Context) error { panic("sink close blew up") },
	}
	h := NewHandle(NewSinkOutput(sink, 0))
	if err := h.Close(DontWaitAsyncClose); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errc:
		if err == nil || err.Error() != "sink close blew up" {
			t.Fatal("panic not converted:", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("panicking close never reached the unhandled-error handler")
	}
}
