package controller

import (
	"testing"

	"github.com/audioengine/core/internal/arena"
	"github.com/audioengine/core/internal/backend"
	"github.com/audioengine/core/internal/enginelog"
	"github.com/audioengine/core/internal/graph"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/pinmatrix"
	"github.com/audioengine/core/internal/processor"
	"github.com/audioengine/core/internal/transport"
	"github.com/stretchr/testify/assert"
)

// wiring mirrors what cmd/audioengine does: one Backend and one
// Controller sharing a pair of queues, the Backend driven manually in
// the test instead of from a real audio callback.
func newWiredPair(t *testing.T) (*backend.Backend[float32], *Controller[float32]) {
	sr := msclock.NewSampleRate(48000)
	a := arena.New[float32](sr)
	g := graph.New[float32](a, 256, sr)
	cmds := transport.NewCommandQueue[float32](32)
	status := transport.NewStatusQueue(32)

	b := backend.New[float32](g, a, sr, 120, 256, cmds, status)
	c := New[float32](cmds, status, enginelog.New())
	return b, c
}

func TestControllerMirrorTracksNodeLifecycle(t *testing.T) {
	b, c := newWiredPair(t)

	c.AddNode(processor.NewPassThrough[float32](1))
	b.ProcessCommands()
	c.PollStatus()

	assert.Equal(t, 1, c.Mirror().NodeCount())
}

func TestControllerMirrorTracksOutputAssignment(t *testing.T) {
	b, c := newWiredPair(t)

	c.AddNode(processor.NewPassThrough[float32](1))
	b.ProcessCommands()
	c.PollStatus()

	var node graph.NodeID
	for id := graph.NodeID(0); id < 16; id++ {
		if c.Mirror().NodeExists(id) {
			node = id
			break
		}
	}

	c.SetOutput(node)
	b.ProcessCommands()
	c.PollStatus()

	got, ok := c.Mirror().OutputNode()
	assert.True(t, ok)
	assert.Equal(t, node, got)
}

func TestControllerMirrorTracksEdgeLifecycle(t *testing.T) {
	b, c := newWiredPair(t)

	c.AddNode(processor.NewPassThrough[float32](1))
	c.AddNode(processor.NewPassThrough[float32](1))
	b.ProcessCommands()
	c.PollStatus()

	var ids []graph.NodeID
	for id := graph.NodeID(0); id < 16; id++ {
		if c.Mirror().NodeExists(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 nodes mirrored, got %d", len(ids))
	}

	edgeMsgID := c.AddEdge(ids[0], ids[1], pinmatrix.Identity(1, 1))
	b.ProcessCommands()
	c.PollStatus()
	_ = edgeMsgID

	var edgeID graph.EdgeID
	found := false
	for id := graph.EdgeID(0); id < 16; id++ {
		if c.Mirror().EdgeExists(id) {
			edgeID = id
			found = true
			break
		}
	}
	assert.True(t, found)

	c.RemoveEdge(edgeID)
	b.ProcessCommands()
	c.PollStatus()
	assert.False(t, c.Mirror().EdgeExists(edgeID))
}

func TestControllerSurfacesRejectionWithoutMirrorChange(t *testing.T) {
	b, c := newWiredPair(t)

	c.AddNode(processor.NewPassThrough[float32](1))
	c.AddNode(processor.NewPassThrough[float32](2))
	b.ProcessCommands()
	c.PollStatus()

	var ids []graph.NodeID
	for id := graph.NodeID(0); id < 16; id++ {
		if c.Mirror().NodeExists(id) {
			ids = append(ids, id)
		}
	}

	before := len(c.Mirror().edges)
	c.AddEdge(ids[0], ids[1], pinmatrix.Identity(1, 1))
	b.ProcessCommands()
	c.PollStatus()
	assert.Equal(t, before, len(c.Mirror().edges))
}

func TestControllerEnsureCapacityAcksAfterHelperCompletes(t *testing.T) {
	b, c := newWiredPair(t)

	c.EnsureCapacity(2, 256, 2)
	for i := 0; i < 1000; i++ {
		b.ProcessCommands()
		c.PollStatus()
	}

	assert.Empty(t, c.pending)
}

func TestControllerStartPauseAddTrackDriveBackend(t *testing.T) {
	b, c := newWiredPair(t)

	c.AddNode(processor.NewPassThrough[float32](1))
	b.ProcessCommands()
	c.PollStatus()

	master, ok := c.Mirror().OutputNode()
	assert.False(t, ok)
	_ = master
	for id := graph.NodeID(0); id < 16; id++ {
		if c.Mirror().NodeExists(id) {
			c.SetOutput(id)
			break
		}
	}
	b.ProcessCommands()
	c.PollStatus()

	assert.False(t, b.Running())
	c.Start()
	b.ProcessCommands()
	c.PollStatus()
	assert.True(t, b.Running())

	c.AddTrack()
	b.ProcessCommands()
	c.PollStatus()
	assert.Equal(t, 2, c.Mirror().NodeCount())

	c.Pause()
	b.ProcessCommands()
	c.PollStatus()
	assert.False(t, b.Running())
}
