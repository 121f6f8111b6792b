package device

import (
	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/enginelog"
	"github.com/audioengine/core/internal/msclock"
	"github.com/gordonklaus/portaudio"
)

// PortAudioDriver streams audio through gordonklaus/portaudio's
// full-duplex callback API. Unlike OtoDriver it is called back
// directly with a float32 output slice already shaped to one
// blockFrames-sized buffer, so no integer conversion step is needed.
type PortAudioDriver struct {
	name    string
	stream  *portaudio.Stream
	render  RenderFunc
	scratch *audiobuf.Buffer[float32]
	log     *enginelog.Logger
}

// NewPortAudioDriver opens the platform's default output stream with
// channels output channels at blockFrames per callback.
func NewPortAudioDriver(sampleRate float64, channels, blockFrames int, render RenderFunc, log *enginelog.Logger) (*PortAudioDriver, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	applyLowLatencyHint()

	d := &PortAudioDriver{
		name:    "portaudio",
		render:  render,
		scratch: audiobuf.WithShape[float32](channels, blockFrames, msclock.NewSampleRate(uint64(sampleRate))),
		log:     log,
	}

	stream, err := portaudio.OpenDefaultStream(0, channels, sampleRate, blockFrames, d.callback)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	d.stream = stream
	return d, nil
}

func (d *PortAudioDriver) callback(out []float32) {
	d.render(d.scratch)
	channels := d.scratch.Channels()
	for f := 0; f < d.scratch.Frames() && f*channels < len(out); f++ {
		for ch := 0; ch < channels; ch++ {
			out[f*channels+ch] = d.scratch.At(ch, f)
		}
	}
}

func (d *PortAudioDriver) Start() error { return d.stream.Start() }

func (d *PortAudioDriver) Close() error {
	if err := d.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

func (d *PortAudioDriver) Name() string { return d.name }
