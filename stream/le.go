package stream

import (
	"encoding/binary"
	"unsafe"
)

// Little-endian primitive writes. Each is a plain span write; multi-byte
// values that straddle a span boundary fall back to the block path.

func (o *OutputStream) WriteUint8(v uint8) error {
	return o.WriteByte(v)
}

func (o *OutputStream) WriteUint16LE(v uint16) error {
	if len(o.span.Free) >= 2 {
		binary.LittleEndian.PutUint16(o.span.Free, v)
		o.span.Free = o.span.Free[2:]
		return nil
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := o.Write(b[:])
	return err
}

func (o *OutputStream) WriteUint32LE(v uint32) error {
	if len(o.span.Free) >= 4 {
		binary.LittleEndian.PutUint32(o.span.Free, v)
		o.span.Free = o.span.Free[4:]
		return nil
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := o.Write(b[:])
	return err
}

func (o *OutputStream) WriteUint64LE(v uint64) error {
	if len(o.span.Free) >= 8 {
		binary.LittleEndian.PutUint64(o.span.Free, v)
		o.span.Free = o.span.Free[8:]
		return nil
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := o.Write(b[:])
	return err
}

// WritePrimitive writes the raw in-memory bytes of a trivially copyable
// value.
func WritePrimitive[T any](o *OutputStream, v T) error {
	p := unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v))
	_, err := o.Write(p)
	return err
}
