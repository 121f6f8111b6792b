// Package backend is the realtime-thread half of the engine/backend
// split (§4.9, spec component C11): it owns the master graph, the
// buffer arena and the per-block render path, and the only state it
// shares with the controller crosses through the bounded transport
// queues — never a shared mutable graph handle (§9 "Two-thread state
// sharing").
package backend

import (
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/arena"
	"github.com/audioengine/core/internal/executor"
	"github.com/audioengine/core/internal/graph"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/pinmatrix"
	"github.com/audioengine/core/internal/playlist"
	"github.com/audioengine/core/internal/processor"
	"github.com/audioengine/core/internal/track"
	"github.com/audioengine/core/internal/transport"
)

// Backend renders one block at a time, draining its command queue and
// recomputing the graph's caches at the start of each RenderBlock call
// (§4.9: "execution-order and buffer-lifetime caches recomputed within
// the same callback window" as the mutation, never mid-render).
type Backend[S audiobuf.Sample] struct {
	graph      *graph.Graph[S]
	exec       *executor.Executor[S]
	arena      *arena.Arena[S]
	sampleRate msclock.SampleRate
	bpm        msclock.Bpm
	blockSize  int

	commands *transport.CommandQueue[S]
	status   *transport.StatusQueue
	helper   *helperPool[S]
	registry *playlist.Registry[S]

	position    msclock.Musical
	cachesDirty bool

	// running is the transport's play/pause state (§4.9: "a
	// running/paused flag"). RenderBlock renders silence and does not
	// advance the playhead while paused.
	running bool
}

// New constructs a Backend around an already-built (possibly empty)
// master graph and arena.
func New[S audiobuf.Sample](
	g *graph.Graph[S],
	a *arena.Arena[S],
	sr msclock.SampleRate,
	bpm msclock.Bpm,
	blockSize int,
	commands *transport.CommandQueue[S],
	status *transport.StatusQueue,
) *Backend[S] {
	return &Backend[S]{
		graph:      g,
		exec:       executor.New[S](g),
		arena:      a,
		sampleRate: sr,
		bpm:        bpm,
		blockSize:  blockSize,
		commands:   commands,
		status:     status,
		helper:     newHelperPool[S](sr),
		registry:   playlist.NewRegistry[S](),
	}
}

// Registry returns the shared clip-buffer registry backing every track
// added via CommandAddTrack. Clip audio is registered here directly
// (not through the command queue) because it is setup-time, non-realtime
// work done before the transport is Start-ed, analogous to loading
// samples before a DAW session begins playing — never call this once
// RenderBlock is being driven from a real audio callback.
func (b *Backend[S]) Registry() *playlist.Registry[S] { return b.registry }

// Running reports the transport's current play/pause state.
func (b *Backend[S]) Running() bool { return b.running }

// Position returns the backend's current transport position.
func (b *Backend[S]) Position() msclock.Musical { return b.position }

// SetPosition relocates the transport directly, bypassing the command
// queue; CommandSetPlayhead is the queued equivalent.
func (b *Backend[S]) SetPosition(m msclock.Musical) { b.position = m }

func (b *Backend[S]) ack(id transport.MessageID) {
	b.status.Push(transport.StatusMessage{ID: id, Kind: transport.StatusAck})
}

func (b *Backend[S]) reject(id transport.MessageID, err error) {
	b.status.Push(transport.StatusMessage{ID: id, Kind: transport.StatusRejected, Err: err.Error()})
}

// ProcessCommands drains every pending command, applies it to the
// graph (and, for clip commands, the targeted track's playlist),
// installs any helper-thread EnsureCapacity results that completed
// since the last call, and recomputes the graph's caches exactly once
// if anything structural changed.
func (b *Backend[S]) ProcessCommands() {
	for _, id := range b.helper.drainReady(b.arena.Install) {
		b.ack(id)
	}

	for {
		cmd, ok := b.commands.Pop()
		if !ok {
			break
		}
		b.apply(cmd)
	}

	if b.cachesDirty {
		if err := b.graph.RecomputeCaches(); err != nil {
			// Unreachable in a correctly maintained graph (G1 forbids
			// the cycles that would cause this); surfaced rather than
			// silently rendering a stale topology.
			b.status.Push(transport.StatusMessage{Kind: transport.StatusRejected, Err: err.Error()})
		}
		b.cachesDirty = false
	}
}

func (b *Backend[S]) apply(cmd transport.Command[S]) {
	switch cmd.Kind {
	case transport.CommandAddNode:
		id := b.graph.AddNode(cmd.Processor)
		// Grow the arena by one output and one mixed-input buffer of the
		// new node's shapes, so rendering never has to allocate for it.
		cfg := cmd.Processor.Config()
		for _, ch := range [2]int{cfg.NumOutputChannels, cfg.NumInputChannels} {
			if ch > 0 {
				b.arena.EnsureCapacity(ch, b.blockSize, b.arena.QueueLen(ch, b.blockSize)+1)
			}
		}
		b.cachesDirty = true
		b.status.Push(transport.StatusMessage{ID: cmd.ID, Kind: transport.StatusNodeAdded, Node: id})

	case transport.CommandRemoveNode:
		if _, err := b.graph.RemoveNode(cmd.Node); err != nil {
			b.reject(cmd.ID, err)
			return
		}
		b.cachesDirty = true
		b.status.Push(transport.StatusMessage{ID: cmd.ID, Kind: transport.StatusNodeRemoved, Node: cmd.Node})

	case transport.CommandAddEdge:
		edgeID, err := b.graph.AddEdge(cmd.SrcNode, cmd.DstNode, cmd.Matrix)
		if err != nil {
			b.reject(cmd.ID, err)
			return
		}
		b.cachesDirty = true
		b.status.Push(transport.StatusMessage{ID: cmd.ID, Kind: transport.StatusEdgeAdded, Edge: edgeID})

	case transport.CommandUpdateEdge:
		if _, ok := b.graph.UpdateEdge(cmd.Edge, cmd.Matrix); !ok {
			b.reject(cmd.ID, errInvalidPinMatrix)
			return
		}
		b.ack(cmd.ID)

	case transport.CommandRemoveEdge:
		if _, ok := b.graph.RemoveEdge(cmd.Edge); !ok {
			b.reject(cmd.ID, errUnknownEdge)
			return
		}
		b.cachesDirty = true
		b.status.Push(transport.StatusMessage{ID: cmd.ID, Kind: transport.StatusEdgeRemoved, Edge: cmd.Edge})

	case transport.CommandSetOutput:
		if err := b.graph.SetOutput(cmd.Node); err != nil {
			b.reject(cmd.ID, err)
			return
		}
		b.ack(cmd.ID)

	case transport.CommandSetInput:
		if err := b.graph.SetInput(cmd.Node); err != nil {
			b.reject(cmd.ID, err)
			return
		}
		b.ack(cmd.ID)

	case transport.CommandInsertClip:
		tr, ok := b.trackAt(cmd.Node)
		if !ok {
			b.reject(cmd.ID, errNotATrack)
			return
		}
		tr.Playlist().InsertClip(cmd.ClipRange, cmd.Clip)
		b.ack(cmd.ID)

	case transport.CommandRemoveClip:
		tr, ok := b.trackAt(cmd.Node)
		if !ok {
			b.reject(cmd.ID, errNotATrack)
			return
		}
		tr.Playlist().RemoveClip(cmd.ClipRange)
		b.ack(cmd.ID)

	case transport.CommandEnsureCapacity:
		b.helper.request(cmd.ID, cmd.Channels, cmd.Frames, cmd.Count)

	case transport.CommandStart:
		b.running = true
		b.ack(cmd.ID)

	case transport.CommandPause:
		b.running = false
		b.ack(cmd.ID)

	case transport.CommandSetPlayhead:
		b.position = cmd.Playhead
		b.ack(cmd.ID)

	case transport.CommandAddTrack:
		id, err := b.addTrack()
		if err != nil {
			b.reject(cmd.ID, err)
			return
		}
		b.cachesDirty = true
		b.status.Push(transport.StatusMessage{ID: cmd.ID, Kind: transport.StatusNodeAdded, Node: id})
	}
}

// addTrack builds a Track wired to the master bus with a diagonal
// pin matrix sized to the master's channel count (§4.9 "AddTrack").
func (b *Backend[S]) addTrack() (graph.NodeID, error) {
	masterID, ok := b.graph.OutputNode()
	if !ok {
		return 0, errNoMasterNode
	}
	master, ok := b.graph.Node(masterID)
	if !ok {
		return 0, errNoMasterNode
	}
	channels := master.Config().NumOutputChannels

	inner := graph.New[S](b.arena, b.blockSize, b.sampleRate)
	innerInput := inner.AddNode(processor.NewPassThrough[S](channels))
	if err := inner.SetInput(innerInput); err != nil {
		return 0, err
	}
	if err := inner.SetOutput(innerInput); err != nil {
		return 0, err
	}
	if err := inner.RecomputeCaches(); err != nil {
		return 0, err
	}

	tr := track.New[S](inner, b.registry)
	id := b.graph.AddNode(tr)

	if _, err := b.graph.AddEdge(id, masterID, pinmatrix.Identity(channels, channels)); err != nil {
		if _, removeErr := b.graph.RemoveNode(id); removeErr != nil {
			return 0, removeErr
		}
		return 0, err
	}
	return id, nil
}

func (b *Backend[S]) trackAt(id graph.NodeID) (*track.Track[S], bool) {
	p, ok := b.graph.Node(id)
	if !ok {
		return nil, false
	}
	tr, ok := p.(*track.Track[S])
	return tr, ok
}

// RenderBlock drains pending commands, and — if running — advances the
// transport by one block and runs the master graph's traversal into
// output. While paused, it renders silence and leaves the playhead
// where it was (§4.9: "a paused engine renders silence").
func (b *Backend[S]) RenderBlock(output *audiobuf.Buffer[S]) {
	b.ProcessCommands()

	if !b.running {
		output.Reset()
		return
	}

	blockDuration := msclock.Frame(b.blockSize).ToMusicalLossy(b.bpm, b.sampleRate)
	blockRange := msclock.Range{Start: b.position, End: b.position.Add(blockDuration)}
	ctx := processor.Context{SampleRate: b.sampleRate, Bpm: b.bpm, BlockRange: blockRange}

	b.exec.ProcessBlock(nil, output, ctx)
	b.position = blockRange.End
}

var (
	errInvalidPinMatrix = graphCommandError("edge update rejected: pin matrix shape mismatch")
	errUnknownEdge      = graphCommandError("edge not found")
	errNotATrack        = graphCommandError("target node is not a track")
	errNoMasterNode     = graphCommandError("no master output node set")
)

type graphCommandError string

func (e graphCommandError) Error() string { return string(e) }
