// Package render holds the plain-terminal render driver and what every
// driver shares.
package render

import (
	"fmt"
	"time"

	"go-midiroll/midi"
)

// Window returns the sample range ending now: [now-lookback, now), both
// relative to the epoch.
func Window(epoch midi.Epoch, lookback time.Duration) (begin, end time.Duration) {
	end = epoch.Since()
	return end - lookback, end
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName returns the scientific pitch name of a MIDI key (60 = C4).
func PitchName(key uint8) string {
	return fmt.Sprintf("%s%d", noteNames[key%12], int(key/12)-1)
}
