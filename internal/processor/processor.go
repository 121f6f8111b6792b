// Package processor defines the block-processing node contract (§4.5)
// implemented by PassThrough, track.Track and graph.Graph itself.
package processor

import (
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/msclock"
)

// Config is a processor's stable-for-the-block channel shape.
type Config struct {
	NumInputChannels  int
	NumOutputChannels int
}

// IsGenerator reports whether this processor takes no input.
func (c Config) IsGenerator() bool { return c.NumInputChannels == 0 }

// Context carries the immutable-for-the-block processing parameters
// (§4.5).
type Context struct {
	SampleRate msclock.SampleRate
	Bpm        msclock.Bpm
	BlockRange msclock.Range
}

// Processor is the capability contract every graph node satisfies:
// a stable channel configuration and a per-block process step.
// Implementations must overwrite (or additively mix into, if designed
// to be additive like PassThrough) every sample of output.
type Processor[S audiobuf.Sample] interface {
	Config() Config
	Process(input *audiobuf.Buffer[S], output *audiobuf.Buffer[S], ctx Context)
}

// PassThrough additively mixes input into output, channel-wise, using
// each input sample's signed-canonical form (§4.5). The executor
// always hands it an equilibrium output buffer (a freshly-taken arena
// buffer, or the caller's output reset to silence for the output
// node), so the additive mix is the only content present.
type PassThrough[S audiobuf.Sample] struct {
	channels int
}

// NewPassThrough builds a PassThrough with equal input/output channel
// counts.
func NewPassThrough[S audiobuf.Sample](channels int) *PassThrough[S] {
	return &PassThrough[S]{channels: channels}
}

// Config implements Processor.
func (p *PassThrough[S]) Config() Config {
	return Config{NumInputChannels: p.channels, NumOutputChannels: p.channels}
}

// Process implements Processor.
func (p *PassThrough[S]) Process(input *audiobuf.Buffer[S], output *audiobuf.Buffer[S], _ Context) {
	if input == nil {
		return
	}
	frames := output.Frames()
	if input.Frames() < frames {
		frames = input.Frames()
	}
	channels := p.channels
	if input.Channels() < channels {
		channels = input.Channels()
	}
	if output.Channels() < channels {
		channels = output.Channels()
	}
	for ch := 0; ch < channels; ch++ {
		for f := 0; f < frames; f++ {
			in := audiobuf.ToSignedSample(input.At(ch, f))
			output.AddAt(ch, f, audiobuf.FromSignedSample[S](in))
		}
	}
}

// Chain composes a linear run of same-shape processors into a single
// Processor without requiring a full graph (adapted from the original
// Rust engine's transformer_chain — see SPEC_FULL.md). Every processor
// in procs must share the same input and output channel count, equal
// to the chain's own.
type Chain[S audiobuf.Sample] struct {
	procs  []Processor[S]
	config Config
}

// NewChain builds a Chain from a non-empty, shape-consistent sequence
// of processors.
func NewChain[S audiobuf.Sample](procs ...Processor[S]) *Chain[S] {
	if len(procs) == 0 {
		panic("processor: Chain requires at least one processor")
	}
	cfg := procs[0].Config()
	for _, p := range procs[1:] {
		c := p.Config()
		if c.NumInputChannels != cfg.NumInputChannels || c.NumOutputChannels != cfg.NumOutputChannels {
			panic("processor: Chain requires uniform channel shape")
		}
	}
	return &Chain[S]{procs: procs, config: cfg}
}

// Config implements Processor.
func (c *Chain[S]) Config() Config { return c.config }

// Process runs each processor in sequence, feeding one's output as the
// next's input via an internal scratch buffer sized to the chain's
// shape.
func (c *Chain[S]) Process(input *audiobuf.Buffer[S], output *audiobuf.Buffer[S], ctx Context) {
	cur := input
	for i, p := range c.procs {
		var dst *audiobuf.Buffer[S]
		if i == len(c.procs)-1 {
			dst = output
		} else {
			dst = audiobuf.WithShape[S](c.config.NumOutputChannels, output.Frames(), output.SampleRate())
		}
		p.Process(cur, dst, ctx)
		cur = dst
	}
}
