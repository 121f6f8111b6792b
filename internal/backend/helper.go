package backend

import (
	"fmt"

	"github.com/audioengine/core/internal/audiobuf"
	"github.com/audioengine/core/internal/msclock"
	"github.com/audioengine/core/internal/transport"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// preallocated is one completed EnsureCapacity request, ready to be
// installed into the Arena by the goroutine that owns it.
type preallocated[S audiobuf.Sample] struct {
	id       transport.MessageID
	channels int
	frames   int
	buffers  []*audiobuf.Buffer[S]
}

// helperPool runs EnsureCapacity work — which can take unbounded time
// for a large requested count — off the command-processing goroutine,
// per §4.9/§9 "Arena growth". singleflight collapses concurrent
// requests for the same (channels, frames) shape arriving in the same
// processing window; errgroup supervises the worker goroutines. The
// actual buffers are handed back over a channel and only ever
// installed into the Arena by Backend.ProcessCommands, so the Arena's
// queue maps are never touched from more than one goroutine.
type helperPool[S audiobuf.Sample] struct {
	sampleRate msclock.SampleRate
	group      *errgroup.Group
	sf         singleflight.Group
	ready      chan preallocated[S]
}

func newHelperPool[S audiobuf.Sample](sr msclock.SampleRate) *helperPool[S] {
	return &helperPool[S]{
		sampleRate: sr,
		group:      &errgroup.Group{},
		ready:      make(chan preallocated[S], 64),
	}
}

// request dispatches one EnsureCapacity command to a worker goroutine.
func (h *helperPool[S]) request(id transport.MessageID, channels, frames, count int) {
	key := fmt.Sprintf("%d:%d", channels, frames)
	h.group.Go(func() error {
		_, err, _ := h.sf.Do(key, func() (any, error) {
			bufs := make([]*audiobuf.Buffer[S], count)
			for i := range bufs {
				bufs[i] = audiobuf.WithShape[S](channels, frames, h.sampleRate)
			}
			h.ready <- preallocated[S]{id: id, channels: channels, frames: frames, buffers: bufs}
			return nil, nil
		})
		return err
	})
}

// drainReady installs every completed preallocation via install,
// returning the MessageIDs that completed so the caller can ack them.
func (h *helperPool[S]) drainReady(install func(channels, frames int, bufs []*audiobuf.Buffer[S])) []transport.MessageID {
	var done []transport.MessageID
	for {
		select {
		case p := <-h.ready:
			install(p.channels, p.frames, p.buffers)
			done = append(done, p.id)
		default:
			return done
		}
	}
}
