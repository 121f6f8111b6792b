// Package executor is the backend-facing name for spec component C9,
// the per-block scheduler. The traversal algorithm itself lives in
// graph.Graph.ProcessBlock (see that package's doc comment for why);
// Executor is a thin, named facade the backend holds onto so the
// engine/backend wiring (§4.9) reads the way the spec's module map
// describes it, independent of graph's internal cache bookkeeping.
package executor

import (
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/graph"
	"github.com/audioengine/core/internal/processor"
)

// Executor runs one graph's per-block traversal.
type Executor[S audiobuf.Sample] struct {
	graph *graph.Graph[S]
}

// New wraps g for block-by-block execution.
func New[S audiobuf.Sample](g *graph.Graph[S]) *Executor[S] {
	return &Executor[S]{graph: g}
}

// ProcessBlock runs one block: mixes parent outputs through their pin
// matrices, invokes every node in execution order, and releases
// arena buffers as soon as their last consumer has run (§4.7).
func (e *Executor[S]) ProcessBlock(external map[graph.NodeID]*audiobuf.Buffer[S], output *audiobuf.Buffer[S], ctx processor.Context) {
	e.graph.ProcessBlock(external, output, ctx)
}
