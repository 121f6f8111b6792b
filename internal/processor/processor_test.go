package processor

import (
	"testing"

	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/msclock"
	"github.com/stretchr/testify/assert"
)

func TestPassThroughIdentity(t *testing.T) {
	sr := msclock.NewSampleRate(48000)
	in := audiobuf.WithShape[float32](2, 4, sr)
	want := [][2]float32{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	for f, frame := range want {
		in.Set(0, f, frame[0])
		in.Set(1, f, frame[1])
	}

	out := audiobuf.WithShape[float32](2, 4, sr)
	p := NewPassThrough[float32](2)
	p.Process(in, out, Context{SampleRate: sr, Bpm: 120, BlockRange: msclock.Range{}})

	for f, frame := range want {
		assert.InDelta(t, frame[0], out.At(0, f), 1e-6)
		assert.InDelta(t, frame[1], out.At(1, f), 1e-6)
	}
}

func TestPassThroughMixesAdditively(t *testing.T) {
	sr := msclock.NewSampleRate(48000)
	in := audiobuf.WithShape[float32](1, 1, sr)
	in.Set(0, 0, 0.25)

	out := audiobuf.WithShape[float32](1, 1, sr)
	out.Set(0, 0, 0.1)

	p := NewPassThrough[float32](1)
	p.Process(in, out, Context{})

	assert.InDelta(t, float32(0.35), out.At(0, 0), 1e-6)
}

func TestChainRunsInSequence(t *testing.T) {
	sr := msclock.NewSampleRate(48000)
	in := audiobuf.WithShape[float32](1, 1, sr)
	in.Set(0, 0, 1)

	chain := NewChain[float32](NewPassThrough[float32](1), NewPassThrough[float32](1))
	out := audiobuf.WithShape[float32](1, 1, sr)
	chain.Process(in, out, Context{})

	assert.Equal(t, float32(1), out.At(0, 0))
}
