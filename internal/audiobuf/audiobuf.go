// Package audiobuf implements the interleaved multi-channel sample
// buffer (§3 "Buffer", §9 "Generic sample type") and the strided
// channel/frame view that replaces the source's closure-based
// accessors (§9 "Self-referential views").
package audiobuf

import "github.com/audioengine/core/internal/msclock"

// Sample is the constraint satisfied by every numeric type the engine
// can mix. f32 is canonical at the audio boundary (§6); other
// instantiations are for tests and offline processing (§9).
type Sample interface {
	~float32 | ~float64 | ~int16 | ~int32
}

// Equilibrium is the additive identity for S — silence.
func Equilibrium[S Sample]() S { return 0 }

// AddAmp returns the amplitude-sum of two samples.
func AddAmp[S Sample](a, b S) S { return a + b }

// MulAmp returns s scaled by gain.
func MulAmp[S Sample](s S, gain float64) S {
	return S(float64(s) * gain)
}

// ToSignedSample converts s to its canonical signed form in [-1, 1],
// used by the executor when mixing heterogeneous-feeling but
// same-instantiation samples additively (§4.5 PassThrough, §4.7).
func ToSignedSample[S Sample](s S) float64 {
	switch v := any(s).(type) {
	case int16:
		return float64(v) / 32768.0
	case int32:
		return float64(v) / 2147483648.0
	default:
		return float64(s)
	}
}

// FromSignedSample is the inverse of ToSignedSample for the given
// instantiation.
func FromSignedSample[S Sample](v float64) S {
	var zero S
	switch any(zero).(type) {
	case int16:
		return S(v * 32768.0)
	case int32:
		return S(v * 2147483648.0)
	default:
		return S(v)
	}
}

// View is an explicit (base, stride, length) strided accessor over a
// Buffer's backing store — a channel view (stride = channel count) or
// a frame view (stride = 1), with no closures and no raw pointers
// crossing lifetimes (§9).
type View[S Sample] struct {
	data   []S
	base   int
	stride int
	length int
}

// Len returns the number of addressable samples in the view.
func (v View[S]) Len() int { return v.length }

// At returns the i'th sample in the view.
func (v View[S]) At(i int) S { return v.data[v.base+i*v.stride] }

// Set writes the i'th sample in the view.
func (v View[S]) Set(i int, s S) { v.data[v.base+i*v.stride] = s }

// Buffer is a fixed-shape interleaved multi-channel sample store:
// channels >= 1, frames >= 0, length == channels*frames, indexed by
// (channel, frame) -> frame*channels+channel (§3).
type Buffer[S Sample] struct {
	channels   int
	frames     int
	sampleRate msclock.SampleRate
	data       []S
}

// WithShape allocates a new zero-initialized (equilibrium) buffer of
// the given shape.
func WithShape[S Sample](channels, frames int, sr msclock.SampleRate) *Buffer[S] {
	if channels < 1 {
		panic("audiobuf: channels must be >= 1")
	}
	if frames < 0 {
		panic("audiobuf: frames must be >= 0")
	}
	return &Buffer[S]{
		channels:   channels,
		frames:     frames,
		sampleRate: sr,
		data:       make([]S, channels*frames),
	}
}

// Channels returns the channel count.
func (b *Buffer[S]) Channels() int { return b.channels }

// Frames returns the frame count.
func (b *Buffer[S]) Frames() int { return b.frames }

// SampleRate returns the buffer's sample rate.
func (b *Buffer[S]) SampleRate() msclock.SampleRate { return b.sampleRate }

func (b *Buffer[S]) index(channel, frame int) int {
	return frame*b.channels + channel
}

// At returns the sample at (channel, frame).
func (b *Buffer[S]) At(channel, frame int) S {
	return b.data[b.index(channel, frame)]
}

// Set writes the sample at (channel, frame).
func (b *Buffer[S]) Set(channel, frame int, v S) {
	b.data[b.index(channel, frame)] = v
}

// AddAt mixes v additively into (channel, frame).
func (b *Buffer[S]) AddAt(channel, frame int, v S) {
	i := b.index(channel, frame)
	b.data[i] = AddAmp(b.data[i], v)
}

// Channel returns a strided view over one channel's frames.
func (b *Buffer[S]) Channel(ch int) View[S] {
	return View[S]{data: b.data, base: ch, stride: b.channels, length: b.frames}
}

// Frame returns a strided view over one frame's channels.
func (b *Buffer[S]) Frame(f int) View[S] {
	return View[S]{data: b.data, base: f * b.channels, stride: 1, length: b.channels}
}

// Raw exposes the backing interleaved store directly, for the device
// boundary copying into/out of a host callback buffer.
func (b *Buffer[S]) Raw() []S { return b.data }

// Reset overwrites every sample with Equilibrium; O(samples) as
// required by §3.
func (b *Buffer[S]) Reset() {
	zero := Equilibrium[S]()
	for i := range b.data {
		b.data[i] = zero
	}
}

// IsEquilibrium reports whether every sample equals Equilibrium. Used
// by property tests backing §8 P5.
func (b *Buffer[S]) IsEquilibrium() bool {
	zero := Equilibrium[S]()
	for _, v := range b.data {
		if v != zero {
			return false
		}
	}
	return true
}
