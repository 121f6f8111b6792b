// Package controller is the non-realtime-thread half of the
// engine/backend split (§4.9, spec component C11): it produces
// structural Commands, consumes StatusMessages, and maintains a
// read-only Mirror of the backend's graph shape rebuilt entirely from
// those messages — never a shared mutable handle into the backend's
// real graph (§9 "Two-thread state sharing", "Shared audio graph
// handle" in SPEC_FULL.md).
package controller

import (
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/enginelog"
	"github.com/audioengine/core/internal/graph"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/pinmatrix"
	"github.com/audioengine/core/internal/playlist"
	"github.com/audioengine/core/internal/processor"
	"github.com/audioengine/core/internal/transport"
)

// edgeInfo is what the Mirror remembers about one installed edge.
type edgeInfo struct {
	Src, Dst graph.NodeID
}

// Mirror is a read-only structural snapshot: which nodes and edges
// exist, and which are designated input/output, as last reported by
// the backend. It is never written to except by Controller.PollStatus.
type Mirror struct {
	nodes     map[graph.NodeID]bool
	edges     map[graph.EdgeID]edgeInfo
	output    graph.NodeID
	hasOutput bool
	input     graph.NodeID
	hasInput  bool
}

func newMirror() Mirror {
	return Mirror{nodes: make(map[graph.NodeID]bool), edges: make(map[graph.EdgeID]edgeInfo)}
}

// NodeExists reports whether the mirror believes node id is live.
func (m Mirror) NodeExists(id graph.NodeID) bool { return m.nodes[id] }

// EdgeExists reports whether the mirror believes edge id is live.
func (m Mirror) EdgeExists(id graph.EdgeID) bool {
	_, ok := m.edges[id]
	return ok
}

// NodeCount returns the mirrored node count.
func (m Mirror) NodeCount() int { return len(m.nodes) }

// Nodes returns every node id currently mirrored, in no particular
// order.
func (m Mirror) Nodes() []graph.NodeID {
	out := make([]graph.NodeID, 0, len(m.nodes))
	for id := range m.nodes {
		out = append(out, id)
	}
	return out
}

// OutputNode returns the mirrored output node, if one has been set.
func (m Mirror) OutputNode() (graph.NodeID, bool) { return m.output, m.hasOutput }

// InputNode returns the mirrored input node, if one has been set.
func (m Mirror) InputNode() (graph.NodeID, bool) { return m.input, m.hasInput }

// pendingCommand remembers what a not-yet-acknowledged command asked
// for, so the Mirror can be updated correctly once its StatusMessage
// arrives (a StatusMessage alone doesn't carry everything a command
// did, e.g. an edge's endpoints).
type pendingCommand struct {
	kind transport.CommandKind
	node graph.NodeID
	src  graph.NodeID
	dst  graph.NodeID
}

// Controller issues commands and consumes status for one engine
// instance.
type Controller[S audiobuf.Sample] struct {
	commands *transport.CommandQueue[S]
	status   *transport.StatusQueue
	log      *enginelog.Logger

	nextID  transport.MessageID
	pending map[transport.MessageID]pendingCommand
	mirror  Mirror
}

// New constructs a Controller around the queues a matching Backend was
// built with.
func New[S audiobuf.Sample](commands *transport.CommandQueue[S], status *transport.StatusQueue, log *enginelog.Logger) *Controller[S] {
	return &Controller[S]{
		commands: commands,
		status:   status,
		log:      log,
		pending:  make(map[transport.MessageID]pendingCommand),
		mirror:   newMirror(),
	}
}

// Mirror returns the current structural snapshot.
func (c *Controller[S]) Mirror() Mirror { return c.mirror }

func (c *Controller[S]) nextMessageID() transport.MessageID {
	c.nextID++
	return c.nextID
}

func (c *Controller[S]) submit(cmd transport.Command[S], pend pendingCommand) transport.MessageID {
	c.pending[cmd.ID] = pend
	if !c.commands.Push(cmd) {
		delete(c.pending, cmd.ID)
		c.log.CommandRejected(uint64(cmd.ID), "command queue full")
	}
	return cmd.ID
}

// AddNode requests a new node wrapping p.
func (c *Controller[S]) AddNode(p processor.Processor[S]) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandAddNode, Processor: p}, pendingCommand{kind: transport.CommandAddNode})
}

// RemoveNode requests node removal.
func (c *Controller[S]) RemoveNode(node graph.NodeID) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandRemoveNode, Node: node}, pendingCommand{kind: transport.CommandRemoveNode, node: node})
}

// AddEdge requests a new edge src -> dst carrying matrix.
func (c *Controller[S]) AddEdge(src, dst graph.NodeID, matrix *pinmatrix.Matrix) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(
		transport.Command[S]{ID: id, Kind: transport.CommandAddEdge, SrcNode: src, DstNode: dst, Matrix: matrix},
		pendingCommand{kind: transport.CommandAddEdge, src: src, dst: dst},
	)
}

// UpdateEdge requests edge's matrix be replaced.
func (c *Controller[S]) UpdateEdge(edge graph.EdgeID, matrix *pinmatrix.Matrix) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandUpdateEdge, Edge: edge, Matrix: matrix}, pendingCommand{kind: transport.CommandUpdateEdge})
}

// RemoveEdge requests edge removal.
func (c *Controller[S]) RemoveEdge(edge graph.EdgeID) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandRemoveEdge, Edge: edge}, pendingCommand{kind: transport.CommandRemoveEdge})
}

// SetOutput requests node be designated the master output.
func (c *Controller[S]) SetOutput(node graph.NodeID) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandSetOutput, Node: node}, pendingCommand{kind: transport.CommandSetOutput, node: node})
}

// SetInput requests node be designated a graph's input node.
func (c *Controller[S]) SetInput(node graph.NodeID) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandSetInput, Node: node}, pendingCommand{kind: transport.CommandSetInput, node: node})
}

// InsertClip requests a clip be placed on the track at node.
func (c *Controller[S]) InsertClip(node graph.NodeID, rng msclock.Range, clip playlist.Clip) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandInsertClip, Node: node, ClipRange: rng, Clip: clip}, pendingCommand{kind: transport.CommandInsertClip})
}

// RemoveClip requests removal of the clip at rng on the track at node.
func (c *Controller[S]) RemoveClip(node graph.NodeID, rng msclock.Range) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandRemoveClip, Node: node, ClipRange: rng}, pendingCommand{kind: transport.CommandRemoveClip})
}

// EnsureCapacity requests the arena grow a buffer shape's idle queue.
func (c *Controller[S]) EnsureCapacity(channels, frames, count int) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandEnsureCapacity, Channels: channels, Frames: frames, Count: count}, pendingCommand{kind: transport.CommandEnsureCapacity})
}

// Start requests the transport begin rendering.
func (c *Controller[S]) Start() transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandStart}, pendingCommand{kind: transport.CommandStart})
}

// Pause requests the transport stop rendering (renders silence, holds
// the playhead) until the next Start.
func (c *Controller[S]) Pause() transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandPause}, pendingCommand{kind: transport.CommandPause})
}

// SetPlayhead requests the transport's block range be relocated to
// start at musical.
func (c *Controller[S]) SetPlayhead(musical msclock.Musical) transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandSetPlayhead, Playhead: musical}, pendingCommand{kind: transport.CommandSetPlayhead})
}

// AddTrack requests a new track be created, wired to the master bus
// with a diagonal pin matrix sized to the master's channel count.
func (c *Controller[S]) AddTrack() transport.MessageID {
	id := c.nextMessageID()
	return c.submit(transport.Command[S]{ID: id, Kind: transport.CommandAddTrack}, pendingCommand{kind: transport.CommandAddTrack})
}

// PollStatus drains every pending StatusMessage, updates the Mirror
// and logs rejections. Call this periodically from the controller's
// own goroutine, never from the audio thread.
func (c *Controller[S]) PollStatus() {
	for {
		msg, ok := c.status.Pop()
		if !ok {
			return
		}
		pend, had := c.pending[msg.ID]
		delete(c.pending, msg.ID)

		switch msg.Kind {
		case transport.StatusNodeAdded:
			c.mirror.nodes[msg.Node] = true
		case transport.StatusNodeRemoved:
			delete(c.mirror.nodes, msg.Node)
			if c.mirror.hasOutput && c.mirror.output == msg.Node {
				c.mirror.hasOutput = false
			}
			if c.mirror.hasInput && c.mirror.input == msg.Node {
				c.mirror.hasInput = false
			}
		case transport.StatusEdgeAdded:
			if had {
				c.mirror.edges[msg.Edge] = edgeInfo{Src: pend.src, Dst: pend.dst}
			}
		case transport.StatusEdgeRemoved:
			delete(c.mirror.edges, msg.Edge)
		case transport.StatusAck:
			if !had {
				continue
			}
			switch pend.kind {
			case transport.CommandSetOutput:
				c.mirror.output = pend.node
				c.mirror.hasOutput = true
			case transport.CommandSetInput:
				c.mirror.input = pend.node
				c.mirror.hasInput = true
			}
		case transport.StatusRejected:
			c.log.CommandRejected(uint64(msg.ID), msg.Err)
		}
	}
}
