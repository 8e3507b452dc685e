// Package roll keeps the piano roll: an append-only timeline of notes built
// from raw events, and the window sampler renderers draw from.
package roll

import "time"

// Note is one sounding pitch on one channel. End is only meaningful once
// Ended is set; an open note is still sounding.
type Note struct {
	Begin    time.Duration
	End      time.Duration
	Ended    bool
	Channel  uint8 // 0-15
	Key      uint8 // 0-127
	Velocity uint8 // 0-127
}

// Open reports whether the note is still sounding.
func (n Note) Open() bool {
	return !n.Ended
}

// Overlaps reports whether the note may sound anywhere in [begin, end).
func (n Note) Overlaps(begin, end time.Duration) bool {
	return n.Begin < end && (!n.Ended || n.End > begin)
}

// Active reports whether the note is sounding at instant t. The begin
// instant itself is exclusive.
func (n Note) Active(t time.Duration) bool {
	return n.Begin < t && (!n.Ended || t < n.End)
}

// Voice identifies a pitch on a channel.
type Voice struct {
	Channel uint8
	Key     uint8
}

// Voice returns the note's channel and pitch.
func (n Note) Voice() Voice {
	return Voice{Channel: n.Channel, Key: n.Key}
}

// Bucket is the set of voices sounding at one sample instant, in timeline
// order.
type Bucket []Voice

// Has reports whether v is in the bucket.
func (b Bucket) Has(v Voice) bool {
	for _, x := range b {
		if x == v {
			return true
		}
	}
	return false
}
