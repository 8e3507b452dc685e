package roll

import (
	"sync"
	"time"
)

// Timeline is the append-only log of notes. One goroutine writes (through
// NoteOn/NoteOff); any number read. Notes are never removed or reordered
// and only End/Ended change after creation.
type Timeline struct {
	mu    sync.RWMutex
	notes []Note
	open  map[Voice][]int // indexes of open notes, oldest first

	// unordered is set once a note begins before its predecessor; until
	// then notes are sorted by Begin.
	unordered bool
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{
		open: make(map[Voice][]int),
	}
}

// NoteOn appends an open note. Retriggers of a voice that is already
// sounding add another open note.
func (tl *Timeline) NoteOn(at time.Duration, channel, key, velocity uint8) {
	v := Voice{Channel: channel & 0x0F, Key: key & 0x7F}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if n := len(tl.notes); n > 0 && at < tl.notes[n-1].Begin {
		tl.unordered = true
	}
	tl.notes = append(tl.notes, Note{
		Begin:    at,
		Channel:  v.Channel,
		Key:      v.Key,
		Velocity: velocity & 0x7F,
	})
	tl.open[v] = append(tl.open[v], len(tl.notes)-1)
}

// NoteOff closes the most recently created open note of the voice. It
// returns false, changing nothing, when no such note is open.
func (tl *Timeline) NoteOff(at time.Duration, channel, key uint8) bool {
	v := Voice{Channel: channel & 0x0F, Key: key & 0x7F}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	stack := tl.open[v]
	if len(stack) == 0 {
		return false
	}
	idx := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(tl.open, v)
	} else {
		tl.open[v] = stack[:len(stack)-1]
	}

	n := &tl.notes[idx]
	if at < n.Begin {
		at = n.Begin
	}
	n.End = at
	n.Ended = true
	return true
}

// Len returns the number of notes.
func (tl *Timeline) Len() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.notes)
}

// OpenCount returns the number of notes still sounding.
func (tl *Timeline) OpenCount() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	n := 0
	for _, stack := range tl.open {
		n += len(stack)
	}
	return n
}

// Notes returns a copy of every note.
func (tl *Timeline) Notes() []Note {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	out := make([]Note, len(tl.notes))
	copy(out, tl.notes)
	return out
}
