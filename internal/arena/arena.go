// Package arena implements the realtime-safe buffer pool (§4.4): a
// keyed queue of interleaved buffers by (channels, frames), grown only
// off the audio thread and drained/refilled without allocation during
// block processing.
package arena

import (
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/msclock"
)

type shape struct {
	channels int
	frames   int
}

// Arena is a pool of buffers of sample type S, all sharing one sample
// rate (the engine's block sample rate).
type Arena[S audiobuf.Sample] struct {
	sampleRate msclock.SampleRate
	queues     map[shape][]*audiobuf.Buffer[S]
}

// New constructs an empty Arena at the given sample rate.
func New[S audiobuf.Sample](sr msclock.SampleRate) *Arena[S] {
	return &Arena[S]{sampleRate: sr, queues: make(map[shape][]*audiobuf.Buffer[S])}
}

// EnsureCapacity allocates zero-initialized buffers of the given shape
// until its queue holds at least n entries. This is the only
// allocating operation in the package and must only be called from
// graph-mutation (command-processing) code, never from the per-block
// render path (§4.4, §9 "Arena growth").
func (a *Arena[S]) EnsureCapacity(channels, frames, n int) {
	key := shape{channels: channels, frames: frames}
	q := a.queues[key]
	for len(q) < n {
		q = append(q, audiobuf.WithShape[S](channels, frames, a.sampleRate))
	}
	a.queues[key] = q
}

// Take pops one buffer of the given shape, or reports false if none is
// available. Take never allocates (§4.4).
func (a *Arena[S]) Take(channels, frames int) (*audiobuf.Buffer[S], bool) {
	key := shape{channels: channels, frames: frames}
	q := a.queues[key]
	if len(q) == 0 {
		return nil, false
	}
	buf := q[len(q)-1]
	a.queues[key] = q[:len(q)-1]
	return buf, true
}

// Release returns buf to its keyed queue. The caller MUST have reset
// buf to equilibrium before calling Release; Release itself does not
// reset, so it stays O(1) (§4.4).
func (a *Arena[S]) Release(buf *audiobuf.Buffer[S]) {
	key := shape{channels: buf.Channels(), frames: buf.Frames()}
	a.queues[key] = append(a.queues[key], buf)
}

// QueueLen reports how many buffers are currently idle for the given
// shape, used by property tests backing §8 P4 (buffer conservation).
func (a *Arena[S]) QueueLen(channels, frames int) int {
	return len(a.queues[shape{channels: channels, frames: frames}])
}

// Install appends already-allocated buffers to the queue for the given
// shape, without allocating itself. Used by the backend's helper-thread
// path (internal/backend) to hand over buffers built off the
// command-processing goroutine once preallocation can't be bounded in
// time for a single processing window (§9 "Arena growth"); the install
// itself still only ever runs on the single goroutine that owns this
// Arena.
func (a *Arena[S]) Install(channels, frames int, bufs []*audiobuf.Buffer[S]) {
	key := shape{channels: channels, frames: frames}
	a.queues[key] = append(a.queues[key], bufs...)
}

// Trim drops idle buffers for any shape whose queue exceeds maxIdle,
// bounding resident memory across a long session. This is a
// controller-invoked maintenance operation and must never be called
// from the audio thread.
func (a *Arena[S]) Trim(maxIdle int) {
	for key, q := range a.queues {
		if len(q) > maxIdle {
			a.queues[key] = q[:maxIdle]
		}
	}
}
