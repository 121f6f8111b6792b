// Package track implements the composite track processor (§4.8, spec
// component C10): a playlist driving clip audio into an inner
// processing graph through a designated pass-through input node.
package track

import (
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/graph"
	"github.com/audioengine/core/internal/playlist"
	"github.com/audioengine/core/internal/processor"
)

// Track is a processor: for each block it projects its playlist onto
// the block's musical range, copies the resulting clip slices into an
// internal buffer shaped to its inner graph's input node, and runs the
// inner graph (§4.8).
type Track[S audiobuf.Sample] struct {
	playlist *playlist.Playlist
	registry *playlist.Registry[S]
	inner    *graph.Graph[S]

	// internal is the track's own mixed-clip-audio buffer, pre-allocated
	// once at construction and reset to equilibrium at the start of each
	// Process call rather than reallocated (§5: the audio thread must
	// not allocate; §4.8 step 4 resets an owned buffer, it doesn't
	// build one).
	internal *audiobuf.Buffer[S]
}

// New builds a Track over inner, whose designated input node (set via
// inner.SetInput) receives the track's mixed clip audio each block.
// registry resolves the BufferKey each playlist clip names to its
// already-decoded sample data.
func New[S audiobuf.Sample](inner *graph.Graph[S], registry *playlist.Registry[S]) *Track[S] {
	channels := inner.Config().NumInputChannels
	if channels < 1 {
		channels = 1
	}
	return &Track[S]{
		playlist: playlist.New(),
		registry: registry,
		inner:    inner,
		internal: audiobuf.WithShape[S](channels, inner.BlockSize(), inner.SampleRate()),
	}
}

// Playlist exposes the track's arrangement for mutation (insert/remove
// clips).
func (t *Track[S]) Playlist() *playlist.Playlist { return t.playlist }

// Config implements processor.Processor: a Track reports its inner
// graph's input-node configuration (§4.8).
func (t *Track[S]) Config() processor.Config {
	return t.inner.Config()
}

// Process implements processor.Processor. input is ignored — a Track
// is a timeline-driven source, not a pass-through — matching §4.8's
// "a track takes no external input channel of its own; its content
// comes from the playlist".
func (t *Track[S]) Process(_ *audiobuf.Buffer[S], output *audiobuf.Buffer[S], ctx processor.Context) {
	cfg := t.inner.Config()
	t.internal.Reset()

	events := t.playlist.GetBlockEvents(ctx.BlockRange, ctx.Bpm, ctx.SampleRate)
	for _, ev := range events {
		handle, ok := t.registry.Lookup(ev.ClipBufferKey)
		if !ok {
			continue
		}
		channels := handle.Channels
		if cfg.NumInputChannels < channels {
			channels = cfg.NumInputChannels
		}
		for ch := 0; ch < channels; ch++ {
			for f := ev.ClipSliceStartFrames; f < ev.ClipSliceEndFrames && f < handle.Data.Frames(); f++ {
				blockFrame := ev.BlockOffsetFrames + (f - ev.ClipSliceStartFrames)
				if blockFrame >= t.internal.Frames() {
					break
				}
				t.internal.AddAt(ch, blockFrame, handle.Data.At(ch, f))
			}
		}
	}

	t.inner.Process(t.internal, output, ctx)
}
