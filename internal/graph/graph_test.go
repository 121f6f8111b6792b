package graph

import (
	"testing"

	"github.com/audioengine/core/internal/arena"
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/pinmatrix"
	"github.com/audioengine/core/internal/processor"
	"github.com/stretchr/testify/assert"
)

const blockSize = 8

func newTestGraph(t *testing.T) (*Graph[float32], *arena.Arena[float32]) {
	sr := msclock.NewSampleRate(48000)
	a := arena.New[float32](sr)
	a.EnsureCapacity(1, blockSize, 8)
	a.EnsureCapacity(2, blockSize, 8)
	return New[float32](a, blockSize, sr), a
}

func ctx(sr msclock.SampleRate) processor.Context {
	return processor.Context{SampleRate: sr, Bpm: 120, BlockRange: msclock.Range{Start: msclock.Zero, End: msclock.Beats(1)}}
}

func TestIdentityPassthrough(t *testing.T) {
	g, _ := newTestGraph(t)
	src := g.AddNode(processor.NewPassThrough[float32](1))
	if err := g.SetOutput(src); err != nil {
		t.Fatalf("SetOutput: %v", err)
	}
	if err := g.RecomputeCaches(); err != nil {
		t.Fatalf("RecomputeCaches: %v", err)
	}

	sr := msclock.NewSampleRate(48000)
	in := audiobuf.WithShape[float32](1, blockSize, sr)
	in.Set(0, 0, 0.5)
	out := audiobuf.WithShape[float32](1, blockSize, sr)

	g.ProcessBlock(map[NodeID]*audiobuf.Buffer[float32]{src: in}, out, ctx(sr))
	assert.InDelta(t, 0.5, out.At(0, 0), 1e-6)
}

func TestChannelSwapViaMatrix(t *testing.T) {
	g, _ := newTestGraph(t)
	srcID := g.AddNode(processor.NewPassThrough[float32](2))
	dstID := g.AddNode(processor.NewPassThrough[float32](2))
	if err := g.SetOutput(dstID); err != nil {
		t.Fatalf("SetOutput: %v", err)
	}

	swap := pinmatrix.Empty(2, 2)
	swap.Set(0, 1, true)
	swap.Set(1, 0, true)
	if _, err := g.AddEdge(srcID, dstID, swap); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.RecomputeCaches(); err != nil {
		t.Fatalf("RecomputeCaches: %v", err)
	}

	sr := msclock.NewSampleRate(48000)
	in := audiobuf.WithShape[float32](2, blockSize, sr)
	in.Set(0, 0, 1)
	in.Set(1, 0, 2)
	out := audiobuf.WithShape[float32](2, blockSize, sr)

	g.ProcessBlock(map[NodeID]*audiobuf.Buffer[float32]{srcID: in}, out, ctx(sr))
	assert.InDelta(t, 2.0, out.At(0, 0), 1e-6)
	assert.InDelta(t, 1.0, out.At(1, 0), 1e-6)
}

func TestTwoParentMix(t *testing.T) {
	g, _ := newTestGraph(t)
	a1 := g.AddNode(processor.NewPassThrough[float32](1))
	a2 := g.AddNode(processor.NewPassThrough[float32](1))
	mixNode := g.AddNode(processor.NewPassThrough[float32](1))
	if err := g.SetOutput(mixNode); err != nil {
		t.Fatalf("SetOutput: %v", err)
	}
	id := pinmatrix.Identity(1, 1)
	if _, err := g.AddEdge(a1, mixNode, id); err != nil {
		t.Fatalf("AddEdge a1: %v", err)
	}
	if _, err := g.AddEdge(a2, mixNode, id); err != nil {
		t.Fatalf("AddEdge a2: %v", err)
	}
	if err := g.RecomputeCaches(); err != nil {
		t.Fatalf("RecomputeCaches: %v", err)
	}

	sr := msclock.NewSampleRate(48000)
	in1 := audiobuf.WithShape[float32](1, blockSize, sr)
	in1.Set(0, 0, 0.2)
	in2 := audiobuf.WithShape[float32](1, blockSize, sr)
	in2.Set(0, 0, 0.3)
	out := audiobuf.WithShape[float32](1, blockSize, sr)

	g.ProcessBlock(map[NodeID]*audiobuf.Buffer[float32]{a1: in1, a2: in2}, out, ctx(sr))
	assert.InDelta(t, 0.5, out.At(0, 0), 1e-6)
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	g, _ := newTestGraph(t)
	n1 := g.AddNode(processor.NewPassThrough[float32](1))
	n2 := g.AddNode(processor.NewPassThrough[float32](1))
	id := pinmatrix.Identity(1, 1)
	if _, err := g.AddEdge(n1, n2, id); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	_, err := g.AddEdge(n2, n1, id)
	if err == nil {
		t.Fatalf("expected cycle rejection")
	}
	var gerr *Error
	if e, ok := err.(*Error); ok {
		gerr = e
	}
	if gerr == nil || gerr.Kind != WouldCycle {
		t.Fatalf("expected WouldCycle error, got %v", err)
	}
}

func TestAddEdgeRejectsBadPinMatrix(t *testing.T) {
	g, _ := newTestGraph(t)
	n1 := g.AddNode(processor.NewPassThrough[float32](1))
	n2 := g.AddNode(processor.NewPassThrough[float32](2))
	_, err := g.AddEdge(n1, n2, pinmatrix.Identity(1, 1))
	if err == nil {
		t.Fatalf("expected InvalidPinMatrix rejection")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != InvalidPinMatrix {
		t.Fatalf("expected InvalidPinMatrix, got %v", err)
	}
}

func TestRemoveNodeRefusesWithDanglingEdges(t *testing.T) {
	g, _ := newTestGraph(t)
	n1 := g.AddNode(processor.NewPassThrough[float32](1))
	n2 := g.AddNode(processor.NewPassThrough[float32](1))
	if _, err := g.AddEdge(n1, n2, pinmatrix.Identity(1, 1)); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	_, err := g.RemoveNode(n1)
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != DanglingInConnection {
		t.Fatalf("expected DanglingInConnection, got %v", err)
	}
}

func TestBufferReleasedAfterLastConsumer(t *testing.T) {
	g, a := newTestGraph(t)
	src := g.AddNode(processor.NewPassThrough[float32](1))
	mid := g.AddNode(processor.NewPassThrough[float32](1))
	if err := g.SetOutput(mid); err != nil {
		t.Fatalf("SetOutput: %v", err)
	}
	if _, err := g.AddEdge(src, mid, pinmatrix.Identity(1, 1)); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.RecomputeCaches(); err != nil {
		t.Fatalf("RecomputeCaches: %v", err)
	}

	before := a.QueueLen(1, blockSize)
	sr := msclock.NewSampleRate(48000)
	in := audiobuf.WithShape[float32](1, blockSize, sr)
	out := audiobuf.WithShape[float32](1, blockSize, sr)
	g.ProcessBlock(map[NodeID]*audiobuf.Buffer[float32]{src: in}, out, ctx(sr))

	assert.Equal(t, before, a.QueueLen(1, blockSize))
}

func TestDebugAdjacency(t *testing.T) {
	g, _ := newTestGraph(t)
	n1 := g.AddNode(processor.NewPassThrough[float32](1))
	n2 := g.AddNode(processor.NewPassThrough[float32](1))
	if _, err := g.AddEdge(n1, n2, pinmatrix.Identity(1, 1)); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	adj := g.DebugAdjacency()
	assert.True(t, adj[0][1])
	assert.False(t, adj[1][0])
}
