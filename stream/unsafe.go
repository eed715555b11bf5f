package stream

import (
	"reflect"
	"unsafe"

	"github.com/moontrade/unsafe/memory"
)

// AllocUnsafeOutput returns a stream over a freshly allocated off-heap
// region of size bytes, together with the region itself and a release
// function. The caller must not use the region or the stream after
// release.
func AllocUnsafeOutput(size int) (*OutputStream, []byte, func()) {
	ptr := memory.Alloc(uintptr(size))
	b := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: uintptr(ptr),
		Len:  size,
		Cap:  size,
	}))
	return NewUnsafeOutput(b), b, func() { memory.Free(ptr) }
}
