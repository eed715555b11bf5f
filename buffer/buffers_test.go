package buffer

import (
	"bytes"
	"testing"
)

func TestAddWritablePageRoundsUp(t *testing.T) {
	b := New(1024, false)
	p := b.AddWritablePage(16)
	if len(p.Data) != 1024 {
		t.Fatal("expected page of 1024, got", len(p.Data))
	}
	p = b.AddWritablePage(5000)
	if len(p.Data) != 5000 {
		t.Fatal("expected page of 5000, got", len(p.Data))
	}
	if b.Count() != 2 {
		t.Fatal("expected 2 pages")
	}
}

func TestConsumeOrder(t *testing.T) {
	b := New(8, false)
	for i := 0; i < 3; i++ {
		p := b.AddWritablePage(8)
		for j := range p.Data {
			p.Data[j] = byte(i)
		}
	}
	var got []byte
	err := b.ConsumeAllPages(func(p []byte) error {
		got = append(got, p...)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := bytes.Join([][]byte{
		bytes.Repeat([]byte{0}, 8),
		bytes.Repeat([]byte{1}, 8),
		bytes.Repeat([]byte{2}, 8),
	}, nil)
	if !bytes.Equal(got, want) {
		t.Fatal("pages consumed out of order")
	}
	if b.Count() != 0 {
		t.Fatal("queue not empty after consume")
	}
}

func TestSplitLastPageContiguous(t *testing.T) {
	b := New(16, false)
	p := b.AddWritablePage(16)
	copy(p.Data, "abcdefghijklmnop")
	tail := b.SplitLastPageAt(6)
	if tail.Start != 6 {
		t.Fatal("tail starts at", tail.Start)
	}
	if p.Kind != PageKindView || tail.Kind != PageKindHeap {
		t.Fatal("data ownership did not move to the tail page")
	}
	var got []byte
	_ = b.ConsumeAllPages(func(p []byte) error {
		got = append(got, p...)
		return nil
	})
	if string(got) != "abcdefghijklmnop" {
		t.Fatalf("split halves not contiguous: %q", got)
	}
}

func TestEndLastPageAtIdempotent(t *testing.T) {
	b := New(16, false)
	p := b.AddWritablePage(16)
	b.EndLastPageAt(4)
	if p.End != 12 {
		t.Fatal("end not adjusted")
	}
	b.EndLastPageAt(0)
	b.EndLastPageAt(0)
	if p.End != 12 {
		t.Fatal("ending at the current end must not move it")
	}
}

func TestAddSplitPage(t *testing.T) {
	b := New(64, true)
	p := b.AddSplitPage(200)
	if p.Start != -200 {
		t.Fatal("split marker missing, start =", p.Start)
	}
	if len(p.Data)%64 != 0 || len(p.Data) < 200 {
		t.Fatal("split page size not a rounded multiple:", len(p.Data))
	}
	b.ReleaseAll()
}

func TestAppendConsumeFront(t *testing.T) {
	b := New(8, true)
	src := []byte("the quick brown fox jumps over the lazy dog")
	b.Append(src)
	if b.Len() != int64(len(src)) {
		t.Fatal("buffered length mismatch")
	}
	var got []byte
	for b.Count() > 0 {
		front := b.Front()
		live := front.Live()
		n := 5
		if n > len(live) {
			n = len(live)
		}
		got = append(got, live[:n]...)
		b.ConsumeFront(int32(n))
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("got %q", got)
	}
}
