package midi

import "sync/atomic"

// Ring is a wait-free single-producer/single-consumer byte queue used
// to funnel MIDI bytes from a producer thread/ISR (serial UART, ALSA
// raw MIDI, a capacitive key scanner task) to the audio render thread
// that owns the Decoder. Capacity is fixed at construction; Push never
// allocates.
type Ring struct {
	buf  []byte
	mask uint64
	head uint64 // next write index, producer-owned
	tail uint64 // next read index, consumer-owned
}

// NewRing creates a ring buffer whose capacity is the next power of two
// >= size (minimum 2).
func NewRing(size int) *Ring {
	n := 2
	for n < size {
		n *= 2
	}
	return &Ring{buf: make([]byte, n), mask: uint64(n - 1)}
}

// Push enqueues a byte. It returns false if the ring is full; the
// caller (the producer) is expected to drop or back off rather than
// block, since blocking here is never acceptable on an audio-adjacent
// path.
func (r *Ring) Push(b byte) bool {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	if head-tail > r.mask {
		return false
	}
	r.buf[head&r.mask] = b
	atomic.StoreUint64(&r.head, head+1)
	return true
}

// Pop dequeues a byte. It returns false if the ring is empty. Called
// only from the consumer (audio) thread, at the top of each block.
func (r *Ring) Pop() (byte, bool) {
	tail := atomic.LoadUint64(&r.tail)
	head := atomic.LoadUint64(&r.head)
	if tail == head {
		return 0, false
	}
	b := r.buf[tail&r.mask]
	atomic.StoreUint64(&r.tail, tail+1)
	return b, true
}

// DrainInto pops every available byte and feeds it to process; the
// audio task calls this at the top of each render block.
func (r *Ring) DrainInto(process func(byte)) {
	for {
		b, ok := r.Pop()
		if !ok {
			return
		}
		process(b)
	}
}
