package bufalloc

import (
	"testing"

	"github.com/smallnest/ringbuffer"
)

// BenchmarkAllocator_AllocateFree measures the allocator's steady-state
// recycling cost: one Allocate/Free round trip per iteration, with the free
// list pre-warmed so no new backing array is created.
func BenchmarkAllocator_AllocateFree(b *testing.B) {
	const bufferSize = 4096
	a := NewAllocator[float32](bufferSize, 1)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := a.Allocate()
		a.Free(buf)
	}
}

// BenchmarkRingBuffer_WriteRead exercises smallnest/ringbuffer's byte-slice
// write/read cycle at the same working set size, as a reference point for
// how much the allocator's identity-checked free list costs over a plain
// ring buffer's copy-in/copy-out.
func BenchmarkRingBuffer_WriteRead(b *testing.B) {
	const bufferSize = 4096 * 4 // float32 elements to bytes
	rb := ringbuffer.New(bufferSize)
	chunk := make([]byte, bufferSize)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := rb.Write(chunk); err != nil {
			b.Fatalf("write: %v", err)
		}
		if _, err := rb.Read(chunk); err != nil {
			b.Fatalf("read: %v", err)
		}
	}
}
