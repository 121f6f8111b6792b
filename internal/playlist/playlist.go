// Package playlist implements the per-track arrangement (§4.2, spec
// component C3): placed clips over an interval.Store, projected to
// per-block playback events for the executor to realize.
package playlist

import (
	"bytes"
	"encoding/gob"

	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/interval"
	"github.com/audioengine/core/internal/msclock"
)

// Clip is one placed reference to an audio buffer resource: BufferKey
// names the underlying sample data (resolved by the backend's buffer
// registry), BufferOffsetFrames is where within that buffer this
// clip's content starts, and BufferLenFrames is the referenced buffer's
// total length in frames: no slice extends past it.
type Clip struct {
	BufferKey          string
	BufferOffsetFrames msclock.Frame
	BufferLenFrames    msclock.Frame
}

// BlockEvent describes one clip's contribution to a single block: copy
// ClipSliceEndFrames-ClipSliceStartFrames frames from the named buffer
// starting at ClipSliceStartFrames into the block starting at
// BlockOffsetFrames (§4.2).
type BlockEvent struct {
	BlockOffsetFrames    int
	ClipSliceStartFrames int
	ClipSliceEndFrames   int
	ClipBufferKey        string
}

// Playlist is one track's arrangement of clips over musical time.
type Playlist struct {
	store *interval.Store[Clip]
}

// New constructs an empty Playlist.
func New() *Playlist {
	return &Playlist{store: interval.New[Clip]()}
}

// InsertClip places clip at rng, replacing and returning any clip
// previously placed at the exact same range (§4.2).
func (p *Playlist) InsertClip(rng msclock.Range, clip Clip) (previous Clip, had bool) {
	return p.store.Insert(rng, clip)
}

// RemoveClip removes the clip placed at the exact range rng, if any.
func (p *Playlist) RemoveClip(rng msclock.Range) (removed Clip, had bool) {
	return p.store.Remove(rng)
}

// Len returns the number of placed clips.
func (p *Playlist) Len() int { return p.store.Len() }

// GetBlockEvents projects every clip overlapping blockRange to a
// BlockEvent for that block (§4.2). For each overlap the intersection
// I = [max(block.start, clip.start), min(block.end, clip.end)) is
// converted to frames at bpm/sr; if rounding would place the event's
// block offset beyond the block's last frame, it is clamped there and
// its slice shortened to match. A slice is never longer than the
// remaining frames of the block or of the referenced clip buffer, and
// an event that clamps to zero length is dropped.
func (p *Playlist) GetBlockEvents(blockRange msclock.Range, bpm msclock.Bpm, sr msclock.SampleRate) []BlockEvent {
	blockStartFrame := blockRange.Start.ToNearestFrameRoundLossy(bpm, sr)
	blockEndFrame := blockRange.End.ToNearestFrameRoundLossy(bpm, sr)
	blockLenFrames := int(blockEndFrame - blockStartFrame)
	if blockLenFrames <= 0 {
		return nil
	}

	var events []BlockEvent
	for _, ov := range p.store.IterOverlaps(blockRange) {
		clipRange := ov.Range
		clip := ov.Value

		inter, ok := clipRange.Intersect(blockRange)
		if !ok {
			continue
		}

		interStartFrame := inter.Start.ToNearestFrameRoundLossy(bpm, sr)
		interEndFrame := inter.End.ToNearestFrameRoundLossy(bpm, sr)
		clipStartFrame := clipRange.Start.ToNearestFrameRoundLossy(bpm, sr)

		blockOffset := int(interStartFrame - blockStartFrame)
		sliceStart := int(interStartFrame-clipStartFrame) + int(clip.BufferOffsetFrames)
		sliceLen := int(interEndFrame - interStartFrame)

		if blockOffset < 0 {
			sliceStart -= blockOffset
			sliceLen += blockOffset
			blockOffset = 0
		}
		if blockOffset >= blockLenFrames {
			excess := blockOffset - (blockLenFrames - 1)
			blockOffset = blockLenFrames - 1
			sliceLen -= excess
		}
		if sliceLen > blockLenFrames-blockOffset {
			sliceLen = blockLenFrames - blockOffset
		}
		if remaining := int(clip.BufferLenFrames) - sliceStart; sliceLen > remaining {
			sliceLen = remaining
		}
		if sliceLen <= 0 {
			continue
		}

		events = append(events, BlockEvent{
			BlockOffsetFrames:    blockOffset,
			ClipSliceStartFrames: sliceStart,
			ClipSliceEndFrames:   sliceStart + sliceLen,
			ClipBufferKey:        clip.BufferKey,
		})
	}
	return events
}

// snapshotEntry is the gob-serializable form of one placed clip,
// structural only: a clip's range and buffer reference, never the
// sample data the buffer key resolves to.
type snapshotEntry struct {
	Range msclock.Range
	Clip  Clip
}

// SaveState encodes the placed-clip structure (ranges and buffer
// references, not sample data) for a controller-side "undo last edit"
// convenience, grounded on the teacher's gob SaveState/LoadState pairs.
func (p *Playlist) SaveState() ([]byte, error) {
	entries := p.store.All()
	snap := make([]snapshotEntry, 0, len(entries))
	for _, e := range entries {
		snap = append(snap, snapshotEntry{Range: e.Range, Clip: e.Value})
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState replaces this Playlist's clips with those encoded in data
// by a prior SaveState.
func (p *Playlist) LoadState(data []byte) error {
	var snap []snapshotEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return err
	}
	p.store = interval.New[Clip]()
	for _, e := range snap {
		p.store.Insert(e.Range, e.Clip)
	}
	return nil
}

// ClipHandle is the shape a loader/resampler collaborator outside the
// core hands in for one buffer key: already-decoded, already-resampled
// PCM plus its declared shape. The core never decodes audio itself
// (Non-goal); it only reads through this handle (adapted from the
// original engine's audio probe shape, src/audio/probe.rs).
type ClipHandle[S audiobuf.Sample] struct {
	Channels   int
	Frames     int
	SampleRate msclock.SampleRate
	Data       *audiobuf.Buffer[S]
}

// Registry maps buffer keys to the clip handles Track resolves
// BlockEvents against. Populated by controller-side loading code,
// read by the backend's render path.
type Registry[S audiobuf.Sample] struct {
	clips map[string]ClipHandle[S]
}

// NewRegistry constructs an empty Registry.
func NewRegistry[S audiobuf.Sample]() *Registry[S] {
	return &Registry[S]{clips: make(map[string]ClipHandle[S])}
}

// Register associates key with handle, replacing any prior handle at
// that key.
func (r *Registry[S]) Register(key string, handle ClipHandle[S]) {
	r.clips[key] = handle
}

// Unregister removes key's handle, if any.
func (r *Registry[S]) Unregister(key string) {
	delete(r.clips, key)
}

// Lookup returns the handle registered at key.
func (r *Registry[S]) Lookup(key string) (ClipHandle[S], bool) {
	h, ok := r.clips[key]
	return h, ok
}
