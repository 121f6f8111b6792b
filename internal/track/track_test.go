package track

import (
	"testing"

	"github.com/audioengine/core/internal/arena"
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/graph"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/playlist"
	"github.com/audioengine/core/internal/processor"
	"github.com/stretchr/testify/assert"
)

func TestTrackPlaysClipIntoInnerGraph(t *testing.T) {
	sr := msclock.NewSampleRate(48000)
	a := arena.New[float32](sr)
	a.EnsureCapacity(1, 24000, 4)

	inner := graph.New[float32](a, 24000, sr)
	passID := inner.AddNode(processor.NewPassThrough[float32](1))
	if err := inner.SetInput(passID); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	if err := inner.SetOutput(passID); err != nil {
		t.Fatalf("SetOutput: %v", err)
	}
	if err := inner.RecomputeCaches(); err != nil {
		t.Fatalf("RecomputeCaches: %v", err)
	}

	registry := playlist.NewRegistry[float32]()
	clipData := audiobuf.WithShape[float32](1, 24000, sr)
	for f := 0; f < 24000; f++ {
		clipData.Set(0, f, 0.42)
	}
	registry.Register("clipA", playlist.ClipHandle[float32]{Channels: 1, Frames: 24000, SampleRate: sr, Data: clipData})

	tr := New[float32](inner, registry)
	tr.Playlist().InsertClip(msclock.Range{Start: msclock.Zero, End: msclock.Beats(1)}, playlist.Clip{
		BufferKey:       "clipA",
		BufferLenFrames: 24000,
	})

	out := audiobuf.WithShape[float32](1, 24000, sr)
	ctx := processor.Context{
		SampleRate: sr,
		Bpm:        120,
		BlockRange: msclock.Range{Start: msclock.Zero, End: msclock.Beats(1)},
	}
	tr.Process(nil, out, ctx)

	assert.InDelta(t, 0.42, out.At(0, 0), 1e-6)
	assert.InDelta(t, 0.42, out.At(0, 23999), 1e-6)
}

func TestTrackConfigMatchesInnerInputNode(t *testing.T) {
	sr := msclock.NewSampleRate(48000)
	a := arena.New[float32](sr)
	inner := graph.New[float32](a, 128, sr)
	passID := inner.AddNode(processor.NewPassThrough[float32](2))
	if err := inner.SetInput(passID); err != nil {
		t.Fatalf("SetInput: %v", err)
	}

	tr := New[float32](inner, playlist.NewRegistry[float32]())
	assert.Equal(t, 2, tr.Config().NumInputChannels)
}
