package midi

import "time"

// MIDI status nibbles for channel voice messages
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
)

// RawEvent is one undecoded message from a source, stamped relative to the
// session epoch.
type RawEvent struct {
	Timestamp time.Duration
	Bytes     []byte
}

// Status returns the status nibble (NoteOn, NoteOff, ...) or 0 if empty.
func (e RawEvent) Status() uint8 {
	if len(e.Bytes) == 0 {
		return 0
	}
	return e.Bytes[0] & 0xF0
}

// Epoch is the fixed origin all session timestamps are measured against.
// The zero Epoch is unset.
type Epoch struct {
	t time.Time
}

// NewEpoch captures the current instant (with its monotonic reading).
func NewEpoch() Epoch {
	return Epoch{t: time.Now()}
}

// EpochAt returns an epoch anchored at t.
func EpochAt(t time.Time) Epoch {
	return Epoch{t: t}
}

// IsZero reports whether the epoch has not been captured yet.
func (e Epoch) IsZero() bool {
	return e.t.IsZero()
}

// Time returns the wall instant of the epoch.
func (e Epoch) Time() time.Time {
	return e.t
}

// Since returns the elapsed time from the epoch to now.
func (e Epoch) Since() time.Duration {
	return time.Since(e.t)
}

// Offset returns t expressed relative to the epoch.
func (e Epoch) Offset(t time.Time) time.Duration {
	return t.Sub(e.t)
}
