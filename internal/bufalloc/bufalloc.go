// Package bufalloc provides fixed-size buffer allocation with free-list
// recycling. It is the data plane's only source of new memory: the audio
// thread calls Allocate and Free, never make([]T, n), so steady-state
// playback does zero heap allocation once the free list has warmed up.
package bufalloc

import "unsafe"

// Buf is a handle to a fixed-size backing array, compared by identity. Id is assigned monotonically starting at 1; Id 0 is reserved for
// the empty Buf returned by zero value. Two Bufs are equal only if they
// share the same backing array, not merely the same Id - an allocator can
// in principle reissue an Id after a very long run, so identity is always
// checked by array, never by Id alone.
type Buf[T any] struct {
	Id   int
	Data []T
}

// Empty reports whether this is the zero-value, unallocated Buf.
func (b Buf[T]) Empty() bool {
	return b.Id == 0
}

// Equals reports whether two Bufs share the same backing array.
func (b Buf[T]) Equals(other Buf[T]) bool {
	return sameBackingArray(b.Data, other.Data)
}

func sameBackingArray[T any](a, b []T) bool {
	return unsafe.SliceData(a) == unsafe.SliceData(b)
}

// Allocator allocates fixed-size Bufs of T, recycling freed ones via a
// LIFO free list. BufferSize is the number of T elements per Buf.
type Allocator[T any] struct {
	BufferSize int

	latestBufferID   int
	freeList         []Buf[T]
	totalBufferCount int
}

// NewAllocator creates an allocator that pre-warms initialBufferCount
// buffers of bufferSize elements each.
func NewAllocator[T any](bufferSize, initialBufferCount int) *Allocator[T] {
	a := &Allocator[T]{
		BufferSize:     bufferSize,
		latestBufferID: 1,
	}
	for i := 0; i < initialBufferCount; i++ {
		a.freeList = append(a.freeList, Buf[T]{Id: a.latestBufferID, Data: make([]T, bufferSize)})
		a.latestBufferID++
	}
	a.totalBufferCount = initialBufferCount
	return a
}

// TotalReservedSlots returns the total element count across every buffer
// this allocator has ever created, free or in use.
func (a *Allocator[T]) TotalReservedSlots() int {
	return a.totalBufferCount * a.BufferSize
}

// TotalFreeSlots returns the element count currently sitting on the free
// list.
func (a *Allocator[T]) TotalFreeSlots() int {
	return len(a.freeList) * a.BufferSize
}

// Allocate pops a Buf from the free list, or creates a new one if the free
// list is empty.
func (a *Allocator[T]) Allocate() Buf[T] {
	if len(a.freeList) == 0 {
		a.totalBufferCount++
		buf := Buf[T]{Id: a.latestBufferID, Data: make([]T, a.BufferSize)}
		a.latestBufferID++
		return buf
	}
	last := len(a.freeList) - 1
	buf := a.freeList[last]
	a.freeList = a.freeList[:last]
	return buf
}

// Free returns buffer to the free list. Freeing a buffer already on the
// free list (checked by backing-array identity, not Id) is a no-op: it
// guards against a double-free silently corrupting the list with two
// entries sharing one array.
func (a *Allocator[T]) Free(buffer Buf[T]) {
	for _, existing := range a.freeList {
		if existing.Equals(buffer) {
			return
		}
	}
	a.freeList = append(a.freeList, buffer)
}
