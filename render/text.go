package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go-midiroll/midi"
	"go-midiroll/roll"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Text draws the roll on a single terminal line: an activity strip for the
// window followed by the names of the notes sounding now.
type Text struct {
	Out      io.Writer
	Sampler  roll.Sampler
	Source   midi.Source
	Lookback time.Duration
	Interval time.Duration
	Columns  int

	// Echo, when set, prints every incoming message on its own line.
	Echo *midi.Subscription
}

// activity levels by number of sounding voices
var levels = []rune{' ', '.', ':', '|', '#'}

// Run draws a frame every Interval until ctx is done.
func (t *Text) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.drainEcho()
			fmt.Fprintln(t.Out)
			return nil
		case <-ticker.C:
			t.drainEcho()
			fmt.Fprintf(t.Out, "\r%s\x1b[K", t.Frame())
		}
	}
}

// Frame renders the current window.
func (t *Text) Frame() string {
	epoch := t.Source.Epoch()
	if epoch.IsZero() {
		return "waiting for " + t.Source.Name()
	}
	begin, end := Window(epoch, t.Lookback)
	return FormatLine(t.Sampler.Sample(begin, end, t.Columns))
}

// FormatLine renders buckets as an activity strip plus the voices of the
// last bucket.
func FormatLine(buckets []roll.Bucket) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, bucket := range buckets {
		lvl := len(bucket)
		if lvl >= len(levels) {
			lvl = len(levels) - 1
		}
		b.WriteRune(levels[lvl])
	}
	b.WriteByte(']')

	if len(buckets) > 0 {
		for _, v := range buckets[len(buckets)-1] {
			fmt.Fprintf(&b, " %s/%d", PitchName(v.Key), v.Channel+1)
		}
	}
	return b.String()
}

func (t *Text) drainEcho() {
	if t.Echo == nil {
		return
	}
	for {
		ev, ok := t.Echo.TryRecv()
		if !ok {
			return
		}
		fmt.Fprintf(t.Out, "\r%s\x1b[K\n", FormatEvent(ev))
	}
}

// FormatEvent renders a raw event as "  12.345s NoteOn channel: 0 key: 60 velocity: 100".
func FormatEvent(ev midi.RawEvent) string {
	return fmt.Sprintf("%9.3fs %s", ev.Timestamp.Seconds(), gomidi.Message(ev.Bytes).String())
}
