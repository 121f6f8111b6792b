// Package msclock implements the exact musical-time / frame-time model
// shared by the playlist, executor and backend: conversions between
// beats, sample frames and wall time, all deterministic across a block.
package msclock

import "math"

// TicksPerBeat is the sub-beat resolution used to represent musical time
// exactly as an integer tick count, avoiding float accumulation error
// across many blocks. 1/TicksPerBeat of a beat is the finest grain the
// engine can address.
const TicksPerBeat = 1 << 20

// Musical is an exact musical-time position or duration, stored as a
// count of ticks (TicksPerBeat ticks per beat). It never goes negative
// in a valid program; arithmetic that could underflow is explicit about
// whether it saturates or fails (see Sub / SubSaturating).
type Musical struct {
	Ticks int64
}

// Beats constructs a Musical from a beat count, rounding to the nearest
// tick (half-to-even).
func Beats(beats float64) Musical {
	return Musical{Ticks: int64(math.RoundToEven(beats * TicksPerBeat))}
}

// Zero is the musical-time origin.
var Zero = Musical{}

// ToBeats returns the floating-point beat count. Lossy for ticks that
// aren't exact binary fractions of TicksPerBeat's scale, but stable for
// display and test assertions.
func (m Musical) ToBeats() float64 {
	return float64(m.Ticks) / TicksPerBeat
}

// Add returns m + o exactly.
func (m Musical) Add(o Musical) Musical {
	return Musical{Ticks: m.Ticks + o.Ticks}
}

// Sub returns m - o and true, or the zero value and false if the result
// would be negative. Use this where an underflow is a logic error the
// caller must handle (e.g. clip/buffer offsets).
func (m Musical) Sub(o Musical) (Musical, bool) {
	d := m.Ticks - o.Ticks
	if d < 0 {
		return Musical{}, false
	}
	return Musical{Ticks: d}, true
}

// SubSaturating returns m - o, clamped to Zero on underflow. Used for
// range arithmetic (§4.1) where a negative offset is meaningless rather
// than erroneous.
func (m Musical) SubSaturating(o Musical) Musical {
	d := m.Ticks - o.Ticks
	if d < 0 {
		d = 0
	}
	return Musical{Ticks: d}
}

// Less reports whether m occupies an earlier position than o.
func (m Musical) Less(o Musical) bool { return m.Ticks < o.Ticks }

// Compare returns -1, 0, or 1 as m is less than, equal to, or greater
// than o.
func (m Musical) Compare(o Musical) int {
	switch {
	case m.Ticks < o.Ticks:
		return -1
	case m.Ticks > o.Ticks:
		return 1
	default:
		return 0
	}
}

// Bpm is a tempo in beats per minute. Must be > 0 for any conversion
// below to be meaningful; callers validate at the configuration
// boundary, not per-block.
type Bpm float64

// SampleRate is an exact frames-per-second rate expressed as a
// ratio of positive integers, so repeated conversions never drift due
// to floating point representation of the rate itself.
type SampleRate struct {
	Num uint64
	Den uint64
}

// NewSampleRate builds an integral sample rate such as 44100 or 48000.
func NewSampleRate(framesPerSecond uint64) SampleRate {
	return SampleRate{Num: framesPerSecond, Den: 1}
}

// Hz returns the rate as frames per second.
func (r SampleRate) Hz() float64 {
	return float64(r.Num) / float64(r.Den)
}

// Frame is a non-negative sample-frame index or duration.
type Frame int64

// Add returns f + o.
func (f Frame) Add(o Frame) Frame { return f + o }

// Mul returns f scaled by n.
func (f Frame) Mul(n uint64) Frame { return Frame(int64(f) * int64(n)) }

// framesPerBeat is the number of sample frames spanned by one beat at
// the given tempo and sample rate.
func framesPerBeat(bpm Bpm, sr SampleRate) float64 {
	return sr.Hz() * 60.0 / float64(bpm)
}

// ToMusicalLossy converts a frame count to musical time at the given
// tempo and sample rate. Always defined for finite, positive bpm; the
// conversion is lossy in general (§4.1) but deterministic.
func (f Frame) ToMusicalLossy(bpm Bpm, sr SampleRate) Musical {
	fpb := framesPerBeat(bpm, sr)
	if fpb <= 0 {
		return Zero
	}
	beats := float64(f) / fpb
	return Beats(beats)
}

// ToNearestFrameRoundLossy converts a musical position to the nearest
// sample frame at the given tempo and sample rate, rounding half to
// even. Always defined for finite, positive bpm.
func (m Musical) ToNearestFrameRoundLossy(bpm Bpm, sr SampleRate) Frame {
	fpb := framesPerBeat(bpm, sr)
	if fpb <= 0 {
		return 0
	}
	frames := m.ToBeats() * fpb
	return Frame(int64(math.RoundToEven(frames)))
}

// Range is a half-open musical-time interval [Start, End). Start < End
// is an invariant enforced by callers that construct one (e.g. the
// interval store's Insert), not by this type itself.
type Range struct {
	Start Musical
	End   Musical
}

// Duration returns End - Start, saturating to zero if End < Start.
func (r Range) Duration() Musical {
	return r.End.SubSaturating(r.Start)
}

// Intersect returns the overlap of r and o and true, or the zero Range
// and false if they don't overlap. Both ranges are treated as
// half-open.
func (r Range) Intersect(o Range) (Range, bool) {
	start := r.Start
	if o.Start.Compare(start) > 0 {
		start = o.Start
	}
	end := r.End
	if o.End.Compare(end) < 0 {
		end = o.End
	}
	if !start.Less(end) {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}
