package device

import (
	"encoding/binary"

	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/enginelog"
	"github.com/audioengine/core/internal/msclock"
	"github.com/ebitengine/oto/v3"
)

// OtoDriver streams audio through ebitengine/oto/v3, the same library
// the teacher pulls in transitively through ebiten's audio player
// (internal/ui/audio.go's apuStream). Here it is driven directly: Read
// is called by oto's own playback goroutine and pulls whole render
// blocks from render, converting them to signed 16-bit little-endian
// frames the way apuStream converts APU PCM.
type OtoDriver struct {
	name        string
	ctx         *oto.Context
	player      oto.Player
	render      RenderFunc
	channels    int
	blockFrames int
	scratch     *audiobuf.Buffer[float32]
	log         *enginelog.Logger
}

// NewOtoDriver opens an oto context at sampleRate/channels and wires
// render as its block source. blockFrames should match the backend's
// configured block size so every Read pulls whole blocks.
func NewOtoDriver(sampleRate, channels, blockFrames int, render RenderFunc, log *enginelog.Logger) (*OtoDriver, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	applyLowLatencyHint()

	d := &OtoDriver{
		name:        "oto",
		ctx:         ctx,
		render:      render,
		channels:    channels,
		blockFrames: blockFrames,
		scratch:     audiobuf.WithShape[float32](channels, blockFrames, msclock.NewSampleRate(uint64(sampleRate))),
		log:         log,
	}
	d.player = ctx.NewPlayer(d)
	return d, nil
}

// Read implements io.Reader for oto.Context.NewPlayer. It only ever
// returns whole render blocks; a caller buffer too small for one block
// gets silence rather than a partial, glitch-prone block.
func (d *OtoDriver) Read(p []byte) (int, error) {
	frameBytes := d.channels * 2
	blockBytes := frameBytes * d.blockFrames
	if len(p) < blockBytes {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := 0
	for n+blockBytes <= len(p) {
		d.render(d.scratch)
		for f := 0; f < d.blockFrames; f++ {
			for ch := 0; ch < d.channels; ch++ {
				sample := int16(clampUnit(d.scratch.At(ch, f)) * 32767)
				binary.LittleEndian.PutUint16(p[n:], uint16(sample))
				n += 2
			}
		}
	}
	return n, nil
}

func (d *OtoDriver) Start() error {
	d.player.Play()
	return nil
}

func (d *OtoDriver) Close() error {
	return d.player.Close()
}

func (d *OtoDriver) Name() string { return d.name }

func clampUnit(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
