package midi

import "errors"

var (
	// ErrSourceUnavailable is returned when no usable input port exists.
	ErrSourceUnavailable = errors.New("no MIDI input source available")
	// ErrFile is returned when a MIDI file cannot be read or parsed.
	ErrFile = errors.New("cannot read MIDI file")
	// ErrTimeFormat is returned for files whose timing is not tick based.
	ErrTimeFormat = errors.New("unsupported MIDI time format")
	// ErrClosed marks the end of an event stream.
	ErrClosed = errors.New("event stream closed")
	// ErrStarted is returned when a source is started twice.
	ErrStarted = errors.New("source already started")
)
