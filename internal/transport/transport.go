// Package transport defines the wire types and bounded lock-free
// SPSC queues that cross the engine/backend thread boundary (§6,
// §4.9): structural mutation Commands flowing controller -> backend,
// and StatusMessages flowing backend -> controller.
//
// The ring buffer is adapted from the teacher's APU PCM ring buffer
// (internal/apu/apu.go: power-of-two capacity, head/tail indices
// masked with `& (len-1)`, drop-when-full) generalized from a single
// goroutine's private buffer to a queue shared by two goroutines, so
// head and tail are atomics rather than plain ints.
package transport

import (
	"sync/atomic"

	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/graph"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/pinmatrix"
	"github.com/audioengine/core/internal/playlist"
	"github.com/audioengine/core/internal/processor"
)

// MessageID correlates a StatusMessage back to the Command that caused
// it.
type MessageID uint64

// CommandKind enumerates the structural mutations the controller can
// ask the backend to perform (§6).
type CommandKind int

const (
	CommandAddNode CommandKind = iota
	CommandRemoveNode
	CommandAddEdge
	CommandUpdateEdge
	CommandRemoveEdge
	CommandSetOutput
	CommandSetInput
	CommandInsertClip
	CommandRemoveClip
	CommandEnsureCapacity
	CommandStart
	CommandPause
	CommandSetPlayhead
	CommandAddTrack
)

// Command is one structural-mutation request. Only the fields
// meaningful to Kind are populated; the rest are zero. Parameterized
// over the engine's sample type because CommandAddNode carries the
// actual processor.Processor[S] instance to install.
type Command[S audiobuf.Sample] struct {
	ID   MessageID
	Kind CommandKind

	Node      graph.NodeID
	SrcNode   graph.NodeID
	DstNode   graph.NodeID
	Edge      graph.EdgeID
	Matrix    *pinmatrix.Matrix
	Processor processor.Processor[S]

	ClipRange msclock.Range
	Clip      playlist.Clip

	Channels int
	Frames   int
	Count    int

	// Playhead carries CommandSetPlayhead's target position.
	Playhead msclock.Musical
}

// StatusKind enumerates the status events the backend reports back
// (§6).
type StatusKind int

const (
	StatusAck StatusKind = iota
	StatusRejected
	StatusNodeAdded
	StatusNodeRemoved
	StatusEdgeAdded
	StatusEdgeRemoved
)

// StatusMessage is one status event, correlated to the triggering
// Command by ID. Err carries a flattened error message (plain data,
// not the error interface) since it crosses the thread boundary as a
// value, never a live error chain.
type StatusMessage struct {
	ID   MessageID
	Kind StatusKind
	Node graph.NodeID
	Edge graph.EdgeID
	Err  string
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// ring is a bounded single-producer/single-consumer queue. Push is
// only ever called by the producer goroutine, Pop only by the
// consumer goroutine; head/tail are atomics so each side can observe
// the other's progress without a lock.
type ring[T any] struct {
	data []T
	mask uint64
	head atomic.Uint64
	tail atomic.Uint64
}

func newRing[T any](capacity int) *ring[T] {
	n := nextPow2(capacity)
	return &ring[T]{data: make([]T, n), mask: uint64(n - 1)}
}

func (r *ring[T]) push(v T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= uint64(len(r.data)) {
		return false
	}
	r.data[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

func (r *ring[T]) pop() (T, bool) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail == head {
		var zero T
		return zero, false
	}
	v := r.data[tail&r.mask]
	r.tail.Store(tail + 1)
	return v, true
}

func (r *ring[T]) len() int {
	return int(r.head.Load() - r.tail.Load())
}

// CommandQueue is the bounded controller -> backend command channel.
type CommandQueue[S audiobuf.Sample] struct {
	r *ring[Command[S]]
}

// NewCommandQueue constructs a queue rounded up to the next power of
// two capacity.
func NewCommandQueue[S audiobuf.Sample](capacity int) *CommandQueue[S] {
	return &CommandQueue[S]{r: newRing[Command[S]](capacity)}
}

// Push enqueues cmd, reporting false if the queue is full. Called from
// the controller side only.
func (q *CommandQueue[S]) Push(cmd Command[S]) bool { return q.r.push(cmd) }

// Pop dequeues the oldest command, if any. Called from the backend
// side only, when it drains the queue at the start of each render
// callback, before any block processing (§4.9).
func (q *CommandQueue[S]) Pop() (Command[S], bool) { return q.r.pop() }

// Len reports the queue's current depth.
func (q *CommandQueue[S]) Len() int { return q.r.len() }

// StatusQueue is the bounded backend -> controller status channel.
type StatusQueue struct {
	r *ring[StatusMessage]
}

// NewStatusQueue constructs a queue rounded up to the next power of
// two capacity.
func NewStatusQueue(capacity int) *StatusQueue {
	return &StatusQueue{r: newRing[StatusMessage](capacity)}
}

// Push enqueues msg, reporting false if the queue is full. Called from
// the backend side only, including from the render callback — this
// path must never block, which is why it is a bounded push that drops
// rather than a blocking send.
func (q *StatusQueue) Push(msg StatusMessage) bool { return q.r.push(msg) }

// Pop dequeues the oldest status message, if any. Called from the
// controller side only.
func (q *StatusQueue) Pop() (StatusMessage, bool) { return q.r.pop() }

// Len reports the queue's current depth.
func (q *StatusQueue) Len() int { return q.r.len() }
