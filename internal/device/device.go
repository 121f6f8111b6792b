// Package device adapts a Backend's RenderBlock to a real audio
// output. Drivers pull fixed-size blocks; nothing here decodes,
// resamples, or buffers beyond the one scratch block required to
// bridge a driver's own callback/stream shape to ours (file-format
// decoding and sample-rate conversion remain out of scope).
package device

import "github.com/audioengine/core/internal/audiobuf"

// RenderFunc renders exactly one block of audio, matching
// Backend.RenderBlock's signature without this package depending on
// the backend package directly (callers close over a *backend.Backend).
type RenderFunc func(output *audiobuf.Buffer[float32])

// Driver is a live output device. Start begins pulling blocks via its
// RenderFunc; Close stops playback and releases the device.
type Driver interface {
	Start() error
	Close() error
	Name() string
}
