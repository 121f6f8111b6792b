// Package graph implements the processing DAG (§4.6): nodes wrapping a
// processor, edges carrying a pin matrix, acyclicity and pin-matrix
// validity checks, and the cached execution order / buffer-lifetime
// map the per-block scheduler depends on.
//
// The original Rust engine this spec was distilled from keeps the
// graph, its block-mixing algorithm and its buffer pool in one crate
// (crates/audio_graph: lib.rs, mix_graph.rs, buffer_pool.rs). This
// package follows that boundary: ProcessBlock — spec component C9, the
// "Executor" — lives here rather than in a separate package, because
// C9 needs to walk the DAG's cached order and lifetime map on every
// call and a separate executor package would either duplicate that
// state or import this one, which this one would have to import back
// to satisfy "a graph IS a processor" (§9). internal/executor is a
// thin, backend-facing facade over this type.
package graph

import (
	"fmt"

	"github.com/audioengine/core/internal/arena"
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/pinmatrix"
	"github.com/audioengine/core/internal/processor"
)

// NodeID identifies a node within one Graph.
type NodeID int

// EdgeID identifies an edge within one Graph.
type EdgeID int

// ErrorKind enumerates the graph structural error taxonomy (§4.6, §7).
type ErrorKind int

const (
	InvalidNode ErrorKind = iota
	WouldCycle
	InvalidPinMatrix
	DanglingInConnection
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidNode:
		return "InvalidNode"
	case WouldCycle:
		return "WouldCycle"
	case InvalidPinMatrix:
		return "InvalidPinMatrix"
	case DanglingInConnection:
		return "DanglingInConnection"
	default:
		return "Unknown"
	}
}

// Error is a graph structural error surfaced synchronously from a
// mutation call.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("graph: %s: %s", e.Kind, e.Msg) }

// Connection is a removed edge's full description, returned by
// RemoveEdge.
type Connection struct {
	Src    NodeID
	Dst    NodeID
	Matrix *pinmatrix.Matrix
}

type edgeEntry struct {
	src, dst NodeID
	matrix   *pinmatrix.Matrix
}

// Graph is a DAG of processors of sample type S (§3 "Graph node",
// "Graph edge").
type Graph[S audiobuf.Sample] struct {
	arena      *arena.Arena[S]
	blockSize  int
	sampleRate msclock.SampleRate

	nodes    map[NodeID]processor.Processor[S]
	nodeIDs  []NodeID
	nextNode NodeID

	edges    map[EdgeID]edgeEntry
	nextEdge EdgeID
	outEdges map[NodeID][]EdgeID
	inEdges  map[NodeID][]EdgeID

	hasOutput bool
	output    NodeID
	hasInput  bool
	input     NodeID

	cachesValid  bool
	order        []NodeID
	lifetime     map[NodeID]NodeID
	releaseAfter map[NodeID][]NodeID
}

// New constructs an empty Graph backed by the given arena, ready to
// have nodes and edges added before its first RecomputeCaches.
func New[S audiobuf.Sample](a *arena.Arena[S], blockSize int, sr msclock.SampleRate) *Graph[S] {
	return &Graph[S]{
		arena:      a,
		blockSize:  blockSize,
		sampleRate: sr,
		nodes:      make(map[NodeID]processor.Processor[S]),
		edges:      make(map[EdgeID]edgeEntry),
		outEdges:   make(map[NodeID][]EdgeID),
		inEdges:    make(map[NodeID][]EdgeID),
	}
}

// BlockSize returns the fixed block-frame count this graph schedules
// at.
func (g *Graph[S]) BlockSize() int { return g.blockSize }

// SampleRate returns the graph's sample rate.
func (g *Graph[S]) SampleRate() msclock.SampleRate { return g.sampleRate }

// AddNode inserts processor p as a new node and invalidates the
// cached execution order and buffer lifetime (§4.6).
func (g *Graph[S]) AddNode(p processor.Processor[S]) NodeID {
	id := g.nextNode
	g.nextNode++
	g.nodes[id] = p
	g.nodeIDs = append(g.nodeIDs, id)
	g.cachesValid = false
	return id
}

// Node returns the processor at id, if any.
func (g *Graph[S]) Node(id NodeID) (processor.Processor[S], bool) {
	p, ok := g.nodes[id]
	return p, ok
}

func (g *Graph[S]) reaches(from, to NodeID) bool {
	if from == to {
		return true
	}
	visited := make(map[NodeID]bool)
	stack := []NodeID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, eid := range g.outEdges[n] {
			dst := g.edges[eid].dst
			if dst == to {
				return true
			}
			if !visited[dst] {
				stack = append(stack, dst)
			}
		}
	}
	return false
}

// AddEdge installs an edge from src to dst carrying matrix, after
// checking G2 (pin-matrix shape) and acyclicity (G1). Invalidates the
// cached execution order and buffer lifetime.
func (g *Graph[S]) AddEdge(src, dst NodeID, matrix *pinmatrix.Matrix) (EdgeID, error) {
	srcProc, ok := g.nodes[src]
	if !ok {
		return 0, &Error{Kind: InvalidNode, Msg: fmt.Sprintf("src node %d does not exist", src)}
	}
	dstProc, ok := g.nodes[dst]
	if !ok {
		return 0, &Error{Kind: InvalidNode, Msg: fmt.Sprintf("dst node %d does not exist", dst)}
	}
	srcCfg, dstCfg := srcProc.Config(), dstProc.Config()
	if matrix.Cols() != srcCfg.NumOutputChannels || matrix.Rows() != dstCfg.NumInputChannels {
		return 0, &Error{
			Kind: InvalidPinMatrix,
			Msg: fmt.Sprintf("matrix shape %dx%d does not match src.num_out=%d dst.num_in=%d",
				matrix.Rows(), matrix.Cols(), srcCfg.NumOutputChannels, dstCfg.NumInputChannels),
		}
	}
	if g.reaches(dst, src) {
		return 0, &Error{Kind: WouldCycle, Msg: fmt.Sprintf("edge %d->%d would close a cycle", src, dst)}
	}

	id := g.nextEdge
	g.nextEdge++
	g.edges[id] = edgeEntry{src: src, dst: dst, matrix: matrix}
	g.outEdges[src] = append(g.outEdges[src], id)
	g.inEdges[dst] = append(g.inEdges[dst], id)
	g.cachesValid = false
	return id, nil
}

// UpdateEdge replaces the matrix on an existing edge, rejecting (and
// leaving the edge unchanged) if the new matrix violates G2.
func (g *Graph[S]) UpdateEdge(id EdgeID, newMatrix *pinmatrix.Matrix) (*pinmatrix.Matrix, bool) {
	e, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	srcCfg := g.nodes[e.src].Config()
	dstCfg := g.nodes[e.dst].Config()
	if newMatrix.Cols() != srcCfg.NumOutputChannels || newMatrix.Rows() != dstCfg.NumInputChannels {
		return nil, false
	}
	old := e.matrix
	e.matrix = newMatrix
	g.edges[id] = e
	return old, true
}

// RemoveEdge deletes edge id and returns its full description.
// Invalidates the cached execution order and buffer lifetime.
func (g *Graph[S]) RemoveEdge(id EdgeID) (*Connection, bool) {
	e, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	delete(g.edges, id)
	g.outEdges[e.src] = removeID(g.outEdges[e.src], id)
	g.inEdges[e.dst] = removeID(g.inEdges[e.dst], id)
	g.cachesValid = false
	return &Connection{Src: e.src, Dst: e.dst, Matrix: e.matrix}, true
}

func removeID(ids []EdgeID, target EdgeID) []EdgeID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// RemoveNode deletes node id, refusing (§4.6) if id is the designated
// output node or if it still participates in any edge.
func (g *Graph[S]) RemoveNode(id NodeID) (processor.Processor[S], error) {
	p, ok := g.nodes[id]
	if !ok {
		return nil, &Error{Kind: InvalidNode, Msg: fmt.Sprintf("node %d does not exist", id)}
	}
	if g.hasOutput && g.output == id {
		return nil, &Error{Kind: InvalidNode, Msg: "cannot remove the designated output node"}
	}
	if len(g.outEdges[id]) > 0 || len(g.inEdges[id]) > 0 {
		return nil, &Error{Kind: DanglingInConnection, Msg: fmt.Sprintf("node %d still participates in edges; detach first", id)}
	}
	delete(g.nodes, id)
	for i, n := range g.nodeIDs {
		if n == id {
			g.nodeIDs = append(g.nodeIDs[:i], g.nodeIDs[i+1:]...)
			break
		}
	}
	delete(g.outEdges, id)
	delete(g.inEdges, id)
	g.cachesValid = false
	return p, nil
}

// SetOutput designates id as the graph's master/output node.
func (g *Graph[S]) SetOutput(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return &Error{Kind: InvalidNode, Msg: fmt.Sprintf("node %d does not exist", id)}
	}
	g.output = id
	g.hasOutput = true
	return nil
}

// OutputNode returns the designated output node, if any.
func (g *Graph[S]) OutputNode() (NodeID, bool) { return g.output, g.hasOutput }

// SetInput designates id as the graph's input node, used when this
// Graph is nested as a Processor (Track's inner graph, §4.8).
func (g *Graph[S]) SetInput(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return &Error{Kind: InvalidNode, Msg: fmt.Sprintf("node %d does not exist", id)}
	}
	g.input = id
	g.hasInput = true
	return nil
}

// InputNode returns the designated input node, if any.
func (g *Graph[S]) InputNode() (NodeID, bool) { return g.input, g.hasInput }

// RecomputeCaches rebuilds the forward topological order and the
// buffer-lifetime map (§4.6 G4). Must be called after any structural
// mutation and before the next ProcessBlock; the backend does this as
// part of command processing (§4.9), never mid-render.
func (g *Graph[S]) RecomputeCaches() error {
	indegree := make(map[NodeID]int, len(g.nodeIDs))
	for _, n := range g.nodeIDs {
		indegree[n] = len(g.inEdges[n])
	}

	var queue []NodeID
	for _, n := range g.nodeIDs {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]NodeID, 0, len(g.nodeIDs))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, eid := range g.outEdges[n] {
			dst := g.edges[eid].dst
			indegree[dst]--
			if indegree[dst] == 0 {
				queue = append(queue, dst)
			}
		}
	}

	if len(order) != len(g.nodeIDs) {
		return &Error{Kind: WouldCycle, Msg: "graph contains a cycle; this should be unreachable given G1"}
	}

	lifetime := make(map[NodeID]NodeID)
	releaseAfter := make(map[NodeID][]NodeID)
	for _, n := range order {
		for _, eid := range g.inEdges[n] {
			parent := g.edges[eid].src
			if prev, ok := lifetime[parent]; ok {
				releaseAfter[prev] = removeNodeFromSlice(releaseAfter[prev], parent)
			}
			lifetime[parent] = n
		}
	}
	for parent, consumer := range lifetime {
		releaseAfter[consumer] = append(releaseAfter[consumer], parent)
	}

	g.order = order
	g.lifetime = lifetime
	g.releaseAfter = releaseAfter
	g.cachesValid = true
	return nil
}

func removeNodeFromSlice(ids []NodeID, target NodeID) []NodeID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// ExecutionOrder returns the cached forward topological order. Panics
// if caches are invalid — a programmer error, since the caller must
// call RecomputeCaches after every structural mutation (§4.7 "Failure
// semantics").
func (g *Graph[S]) ExecutionOrder() []NodeID {
	if !g.cachesValid {
		panic("graph: ExecutionOrder called with invalid caches; call RecomputeCaches after mutating the graph")
	}
	return g.order
}

// BufferLifetime returns the cached node -> last-consumer-node map.
func (g *Graph[S]) BufferLifetime() map[NodeID]NodeID {
	if !g.cachesValid {
		panic("graph: BufferLifetime called with invalid caches; call RecomputeCaches after mutating the graph")
	}
	return g.lifetime
}

// CachesValid reports whether the execution order and buffer-lifetime
// caches currently reflect the graph's structure.
func (g *Graph[S]) CachesValid() bool { return g.cachesValid }

// DebugAdjacency returns a len(nodeIDs) x len(nodeIDs) boolean
// reachability-free adjacency matrix (direct edges only), indexed by
// position in NodeIDs(). Intended for tests and CLI introspection
// (adapted from the original engine's src/adjacency_matrix.rs).
func (g *Graph[S]) DebugAdjacency() [][]bool {
	index := make(map[NodeID]int, len(g.nodeIDs))
	for i, n := range g.nodeIDs {
		index[n] = i
	}
	m := make([][]bool, len(g.nodeIDs))
	for i := range m {
		m[i] = make([]bool, len(g.nodeIDs))
	}
	for _, e := range g.edges {
		m[index[e.src]][index[e.dst]] = true
	}
	return m
}

// NodeIDs returns every live node id in insertion order.
func (g *Graph[S]) NodeIDs() []NodeID {
	out := make([]NodeID, len(g.nodeIDs))
	copy(out, g.nodeIDs)
	return out
}

// Config implements processor.Processor: a Graph used as a nested
// processor reports its designated input node's channel configuration
// (§4.8).
func (g *Graph[S]) Config() processor.Config {
	if !g.hasInput {
		return processor.Config{}
	}
	return g.nodes[g.input].Config()
}

// Process implements processor.Processor by running ProcessBlock with
// the designated input node bound to input (§9 "a graph IS a
// processor").
func (g *Graph[S]) Process(input *audiobuf.Buffer[S], output *audiobuf.Buffer[S], ctx processor.Context) {
	external := make(map[NodeID]*audiobuf.Buffer[S])
	if g.hasInput && input != nil {
		external[g.input] = input
	}
	g.ProcessBlock(external, output, ctx)
}

// ProcessBlock runs one block's traversal (§4.7, spec component C9):
// for each node in execution order, mix parent outputs through their
// pin matrices into the node's input, invoke the node, and release
// buffers as soon as their last consumer has run.
func (g *Graph[S]) ProcessBlock(external map[NodeID]*audiobuf.Buffer[S], output *audiobuf.Buffer[S], ctx processor.Context) {
	if !g.cachesValid {
		panic("graph: ProcessBlock called with invalid caches; call RecomputeCaches first")
	}

	cachedOutputs := make(map[NodeID]*audiobuf.Buffer[S])

	for _, n := range g.order {
		proc := g.nodes[n]
		cfg := proc.Config()
		isOutput := g.hasOutput && n == g.output

		var writeTarget *audiobuf.Buffer[S]
		if isOutput {
			output.Reset()
			writeTarget = output
		} else {
			buf, ok := g.arena.Take(cfg.NumOutputChannels, g.blockSize)
			if !ok {
				panic(fmt.Sprintf("graph: arena exhausted for node %d output shape (%d ch, %d frames)", n, cfg.NumOutputChannels, g.blockSize))
			}
			writeTarget = buf
			cachedOutputs[n] = buf
		}

		var input *audiobuf.Buffer[S]
		var mixedTemp *audiobuf.Buffer[S]
		if ext, ok := external[n]; ok {
			if cfg.NumInputChannels > 0 && ext.Channels() != cfg.NumInputChannels {
				panic(fmt.Sprintf("graph: external input for node %d has %d channels, want %d", n, ext.Channels(), cfg.NumInputChannels))
			}
			input = ext
		} else if cfg.NumInputChannels == 0 {
			input = nil
		} else {
			mixed, ok := g.arena.Take(cfg.NumInputChannels, g.blockSize)
			if !ok {
				panic(fmt.Sprintf("graph: arena exhausted for node %d input shape (%d ch, %d frames)", n, cfg.NumInputChannels, g.blockSize))
			}
			for _, eid := range g.inEdges[n] {
				e := g.edges[eid]
				parentOut, ok := cachedOutputs[e.src]
				if !ok {
					continue
				}
				for _, c := range e.matrix.ChannelConnections() {
					for f := 0; f < g.blockSize; f++ {
						v := audiobuf.ToSignedSample(parentOut.At(c.InputChannel, f))
						mixed.AddAt(c.OutputChannel, f, audiobuf.FromSignedSample[S](v))
					}
				}
			}
			input = mixed
			mixedTemp = mixed
		}

		proc.Process(input, writeTarget, ctx)

		if mixedTemp != nil {
			mixedTemp.Reset()
			g.arena.Release(mixedTemp)
		}

		if !isOutput {
			for _, parent := range g.releaseAfter[n] {
				if buf, ok := cachedOutputs[parent]; ok {
					buf.Reset()
					g.arena.Release(buf)
					delete(cachedOutputs, parent)
				}
			}
		}
	}

	for _, buf := range cachedOutputs {
		buf.Reset()
		g.arena.Release(buf)
	}
}
