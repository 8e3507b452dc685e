package midi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func near(got, want time.Duration) bool {
	d := got - want
	return d > -time.Millisecond && d < time.Millisecond
}

func TestSchedule_TempoMap(t *testing.T) {
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, gomidi.NoteOn(0, 60, 100))
	tr.Add(960, gomidi.NoteOff(0, 60)) // one quarter at 120 = 500ms
	tr.Add(0, smf.MetaTempo(60))
	tr.Add(960, gomidi.NoteOn(0, 62, 100)) // one quarter at 60 = 1s
	tr.Close(480)

	events, length := schedule([]smf.Track{tr}, smf.MetricTicks(960), 0)
	if len(events) != 3 {
		t.Fatalf("events=%d; want 3 (meta events skipped)", len(events))
	}
	want := []time.Duration{0, 500 * time.Millisecond, 1500 * time.Millisecond}
	for i, w := range want {
		if !near(events[i].at, w) {
			t.Fatalf("event %d at %v; want %v", i, events[i].at, w)
		}
	}
	if !near(length, 2*time.Second) {
		t.Fatalf("length=%v; want 2s", length)
	}
}

func TestSchedule_MergesTracks(t *testing.T) {
	var a, b smf.Track
	a.Add(0, gomidi.NoteOn(0, 60, 100))
	a.Add(960, gomidi.NoteOff(0, 60))
	a.Close(0)
	b.Add(480, gomidi.NoteOn(1, 64, 100))
	b.Add(960, gomidi.NoteOff(1, 64))
	b.Close(0)

	events, _ := schedule([]smf.Track{a, b}, smf.MetricTicks(960), time.Second)
	if len(events) != 4 {
		t.Fatalf("events=%d; want 4", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].at < events[i-1].at {
			t.Fatalf("events not in time order: %v before %v", events[i-1].at, events[i].at)
		}
	}
	// default tempo, offset applied
	if !near(events[1].at, time.Second+250*time.Millisecond) || events[1].msg[0] != 0x91 {
		t.Fatalf("second event %+v", events[1])
	}
}

func writeFixture(t *testing.T, bpm float64, notes int) string {
	t.Helper()
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(960)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	for i := 0; i < notes; i++ {
		tr.Add(0, gomidi.NoteOn(0, uint8(60+i), 100))
		tr.Add(480, gomidi.NoteOff(0, uint8(60+i)))
	}
	tr.Close(0)
	if err := sm.Add(tr); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "fixture.mid")
	if err := sm.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenPlayback_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenPlayback(filepath.Join(dir, "missing.mid"))
	if !errors.Is(err, ErrFile) {
		t.Fatalf("missing: err=%v; want ErrFile", err)
	}

	cases := map[string][]byte{
		"empty": nil,
		"text":  []byte("this is not a MIDI file at all"),
	}
	for name, data := range cases {
		path := filepath.Join(dir, name+".mid")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := OpenPlayback(path); !errors.Is(err, ErrFile) {
			t.Fatalf("%s: err=%v; want ErrFile", name, err)
		}
	}
}

func TestOpenPlayback_Timecode(t *testing.T) {
	sm := smf.New()
	sm.TimeFormat = smf.SMPTE25(40)
	var tr smf.Track
	tr.Add(0, gomidi.NoteOn(0, 60, 100))
	tr.Add(40, gomidi.NoteOff(0, 60))
	tr.Close(0)
	if err := sm.Add(tr); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "smpte.mid")
	if err := sm.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenPlayback(path); !errors.Is(err, ErrTimeFormat) {
		t.Fatalf("err=%v; want ErrTimeFormat", err)
	}
}

func TestOpenPlayback_Describes(t *testing.T) {
	path := writeFixture(t, 120, 4)
	p, err := OpenPlayback(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "fixture.mid" || p.Resolution() != 960 || p.Events() != 8 {
		t.Fatalf("name=%q resolution=%d events=%d", p.Name(), p.Resolution(), p.Events())
	}
	// four eighth notes at 120
	if !near(p.Length(), time.Second) {
		t.Fatalf("length=%v; want 1s", p.Length())
	}
	if f := p.Format(); f > 1 {
		t.Fatalf("format=%d; want 0 or 1 for a single track", f)
	}
	if !p.Epoch().IsZero() {
		t.Fatalf("epoch set before Start")
	}

	var seen []RawEvent
	p.Each(func(ev RawEvent) { seen = append(seen, ev) })
	if len(seen) != 8 || seen[0].Status() != NoteOn || seen[1].Status() != NoteOff {
		t.Fatalf("Each yielded %v", seen)
	}
}

func TestPlayback_PlaysToEndAndCloses(t *testing.T) {
	// 6000 bpm: each eighth note lasts 5ms
	p, err := OpenPlayback(writeFixture(t, 6000, 5))
	if err != nil {
		t.Fatal(err)
	}
	d := NewDistributor()
	s := d.Subscribe()
	if err := p.Start(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Start(context.Background(), d); !errors.Is(err, ErrStarted) {
		t.Fatalf("second Start err=%v; want ErrStarted", err)
	}
	if p.Epoch().IsZero() {
		t.Fatalf("epoch not captured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var got []RawEvent
	for {
		e, err := s.Recv(ctx)
		if errors.Is(err, ErrClosed) {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 10 {
		t.Fatalf("received %d events; want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Fatalf("timestamps go backwards at %d", i)
		}
	}
}

func TestPlayback_Pause(t *testing.T) {
	// 30 bpm: notes every second, so nothing after the first arrives soon
	p, err := OpenPlayback(writeFixture(t, 30, 3))
	if err != nil {
		t.Fatal(err)
	}
	var _ Pauser = p

	d := NewDistributor()
	if err := p.Start(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	p.TogglePause()
	deadline := time.Now().Add(2 * time.Second)
	for !p.Paused() {
		if time.Now().After(deadline) {
			t.Fatalf("never paused")
		}
		time.Sleep(time.Millisecond)
	}

	p.TogglePause()
	for p.Paused() {
		if time.Now().After(deadline) {
			t.Fatalf("never resumed")
		}
		time.Sleep(time.Millisecond)
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if d.Send(RawEvent{}) {
		t.Fatalf("distributor left open after Close")
	}
}

func TestOpen_SelectsPlayback(t *testing.T) {
	src, err := Open(Options{File: writeFixture(t, 120, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*PlaybackSource); !ok {
		t.Fatalf("Open with a file returned %T", src)
	}
}
