package runtime

import (
	"strings"
	"unsafe"
)

const frameSlabSize = 1024

// FrameStats describes heap allocations tracked in the current frame
type FrameStats struct {
	Frame       uint64
	Allocations int
	Bytes       int
}

// frameAllocator hands out object slices from bump-allocated slabs and keeps
// a log of every byte allocation until the frame is reset
type frameAllocator struct {
	slab  []Object
	slabs [][]Object
	log   [][]byte
	stats FrameStats
}

func (f *frameAllocator) objects(n int) []Object {
	if n == 0 {
		return nil
	}
	if cap(f.slab)-len(f.slab) < n {
		size := frameSlabSize
		if n > size {
			size = n
		}
		f.slab = make([]Object, 0, size)
		f.slabs = append(f.slabs, f.slab)
		f.track(size * int(unsafe.Sizeof(Object(0))))
	}
	start := len(f.slab)
	f.slab = f.slab[:start+n]
	return f.slab[start : start+n : start+n]
}

func (f *frameAllocator) bytes(n int) []byte {
	bs := make([]byte, n)
	f.log = append(f.log, bs)
	f.track(n)
	return bs
}

func (f *frameAllocator) cloneString(s string) string {
	f.track(len(s))
	return strings.Clone(s)
}

func (f *frameAllocator) track(size int) {
	f.stats.Allocations++
	f.stats.Bytes += size
}

func (f *frameAllocator) reset() {
	f.slab = nil
	f.slabs = nil
	f.log = nil
	f.stats = FrameStats{Frame: f.stats.Frame + 1}
}
