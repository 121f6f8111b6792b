package device

import (
	"encoding/binary"
	"testing"

	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/msclock"
	"github.com/stretchr/testify/assert"
)

// newTestOtoDriver builds an OtoDriver without opening a real oto
// context, exercising only the Read conversion path.
func newTestOtoDriver(channels, blockFrames int, render RenderFunc) *OtoDriver {
	return &OtoDriver{
		name:        "oto",
		render:      render,
		channels:    channels,
		blockFrames: blockFrames,
		scratch:     audiobuf.WithShape[float32](channels, blockFrames, msclock.NewSampleRate(48000)),
	}
}

func TestOtoDriverReadConvertsWholeBlock(t *testing.T) {
	d := newTestOtoDriver(2, 4, func(out *audiobuf.Buffer[float32]) {
		for f := 0; f < out.Frames(); f++ {
			out.Set(0, f, 0.5)
			out.Set(1, f, -0.5)
		}
	})

	buf := make([]byte, 2*4*2) // channels * blockFrames * 2 bytes
	n, err := d.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, len(buf), n)

	left := int16(binary.LittleEndian.Uint16(buf[0:2]))
	right := int16(binary.LittleEndian.Uint16(buf[2:4]))
	assert.Equal(t, int16(16383), left)   // 0.5*32767 truncated toward zero
	assert.Equal(t, int16(-16383), right) // -0.5*32767 truncated toward zero
}

func TestOtoDriverReadSilentWhenBufferTooSmall(t *testing.T) {
	called := false
	d := newTestOtoDriver(2, 4, func(out *audiobuf.Buffer[float32]) { called = true })

	buf := make([]byte, 3)
	n, err := d.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.False(t, called)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, float32(1), clampUnit(1.5))
	assert.Equal(t, float32(-1), clampUnit(-1.5))
	assert.Equal(t, float32(0.25), clampUnit(0.25))
}
