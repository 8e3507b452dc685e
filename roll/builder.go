package roll

import (
	"context"
	"errors"
	"sync/atomic"

	"go-midiroll/debug"
	"go-midiroll/midi"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Receiver is the consuming end of an event stream.
type Receiver interface {
	Recv(ctx context.Context) (midi.RawEvent, error)
	TryRecv() (midi.RawEvent, bool)
}

// Builder is the timeline's only writer. It decodes raw events and turns
// note-on/note-off pairs into Notes.
type Builder struct {
	tl  *Timeline
	src Receiver

	applied atomic.Int64
	dropped atomic.Int64
}

// NewBuilder creates a builder writing src's events into tl.
func NewBuilder(tl *Timeline, src Receiver) *Builder {
	return &Builder{tl: tl, src: src}
}

// Run consumes events until the stream closes. When ctx is cancelled first,
// whatever is already queued is still applied before returning.
func (b *Builder) Run(ctx context.Context) error {
	for {
		ev, err := b.src.Recv(ctx)
		switch {
		case err == nil:
			b.Apply(ev)
		case errors.Is(err, midi.ErrClosed):
			return nil
		default:
			for {
				ev, ok := b.src.TryRecv()
				if !ok {
					return nil
				}
				b.Apply(ev)
			}
		}
	}
}

// Apply decodes one event and updates the timeline. Anything that is not a
// note-on or note-off, and note-offs with nothing open, are dropped.
func (b *Builder) Apply(ev midi.RawEvent) {
	switch kind, ch, key, vel := decode(ev.Bytes); kind {
	case midi.NoteOn:
		b.tl.NoteOn(ev.Timestamp, ch, key, vel)
		b.applied.Add(1)
	case midi.NoteOff:
		if b.tl.NoteOff(ev.Timestamp, ch, key) {
			b.applied.Add(1)
			return
		}
		b.dropped.Add(1)
		debug.LogEvery(32, "roll", "note-off without open note ch=%d key=%d", ch, key)
	default:
		b.dropped.Add(1)
	}
}

// Stats returns how many events changed the timeline and how many were
// dropped.
func (b *Builder) Stats() (applied, dropped int64) {
	return b.applied.Load(), b.dropped.Load()
}

// decode classifies a channel message as NoteOn or NoteOff (note-on with
// velocity 0 counts as off). kind is 0 for everything else.
func decode(raw []byte) (kind, channel, key, velocity uint8) {
	if len(raw) < 3 {
		return 0, 0, 0, 0
	}
	switch raw[0] & 0xF0 {
	case midi.NoteOn, midi.NoteOff:
	default:
		return 0, 0, 0, 0
	}

	msg := gomidi.Message(raw[:3])
	if msg.GetNoteStart(&channel, &key, &velocity) {
		return midi.NoteOn, channel, key, velocity
	}
	if msg.GetNoteEnd(&channel, &key) {
		return midi.NoteOff, channel, key, 0
	}
	return 0, 0, 0, 0
}
