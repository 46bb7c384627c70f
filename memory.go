package depot

import "unsafe"

// All raw pointer arithmetic in the package goes through this file.

// blob is a word aligned byte buffer. Component instances are copied in and
// out of blobs byte-wise, so only pointer-free types may live in one.
type blob []byte

func newBlob(size int) blob {
	if size < 0 {
		size = 0
	}
	// One spare word keeps a pointer to the end of the buffer (zero sized
	// components at the tail) inside the allocation.
	words := make([]uint64, size/8+1)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)[:size]
}

func (b blob) at(offset int32) unsafe.Pointer {
	if b == nil {
		return nil
	}
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), offset)
}

// insert returns a copy of b with size zeroed bytes opened at offset.
func (b blob) insert(offset, size int32) blob {
	out := newBlob(len(b) + int(size))
	copy(out, b[:offset])
	copy(out[offset+size:], b[offset:])
	return out
}

// cut returns a copy of b without the bytes in [offset, offset+size).
func (b blob) cut(offset, size int32) blob {
	out := newBlob(len(b) - int(size))
	copy(out, b[:offset])
	copy(out[offset:], b[offset+size:])
	return out
}

func (b blob) clone() blob {
	out := newBlob(len(b))
	copy(out, b)
	return out
}

// laneAt returns the address of lane within a four wide component block
// whose elements are stride bytes apart.
func laneAt(block unsafe.Pointer, lane int, stride int32) unsafe.Pointer {
	return unsafe.Add(block, lane*int(stride))
}

func offsetPtr(ptr unsafe.Pointer, offset int32) unsafe.Pointer {
	return unsafe.Add(ptr, offset)
}

func bytesAt(ptr unsafe.Pointer, size int32) []byte {
	return unsafe.Slice((*byte)(ptr), size)
}

func copyBytes(dst, src unsafe.Pointer, size int32) {
	if size == 0 {
		return
	}
	copy(bytesAt(dst, size), bytesAt(src, size))
}

func zeroBytes(dst unsafe.Pointer, size int32) {
	if size == 0 {
		return
	}
	clear(bytesAt(dst, size))
}
