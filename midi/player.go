package midi

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"go-midiroll/debug"

	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultBPM applies until the first tempo event.
const DefaultBPM = 120.0

// SMF format 2 files hold independent sequences played one after another.
const formatSequential = 2

// scheduled is one playable message at its position in the file.
type scheduled struct {
	at  time.Duration
	msg []byte
}

// PlaybackSource replays a Standard MIDI File in real time.
type PlaybackSource struct {
	path   string
	format uint16
	ticks  smf.MetricTicks
	events []scheduled
	length time.Duration

	pause  chan struct{}
	paused atomic.Bool

	mu      sync.Mutex
	epoch   Epoch
	dist    *Distributor
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// OpenPlayback reads and schedules a MIDI file. Unreadable or unparsable
// files fail with ErrFile, non tick based timing with ErrTimeFormat.
func OpenPlayback(path string) (*PlaybackSource, error) {
	// the smf reader assumes metric ticks, so timecode files are rejected
	// from the header before parsing
	if err := checkHeader(path); err != nil {
		return nil, err
	}
	s, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFile, path, err)
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: %s uses %v", ErrTimeFormat, path, s.TimeFormat)
	}

	var events []scheduled
	var length time.Duration
	if s.Format() == formatSequential {
		for _, tr := range s.Tracks {
			evs, end := schedule([]smf.Track{tr}, ticks, length)
			events = append(events, evs...)
			length = end
		}
	} else {
		events, length = schedule(s.Tracks, ticks, 0)
	}

	debug.L().Info("midi file loaded",
		zap.String("path", path),
		zap.Uint16("format", s.Format()),
		zap.Int("tracks", len(s.Tracks)),
		zap.Int("events", len(events)),
		zap.Duration("length", length))

	return &PlaybackSource{
		path:   path,
		format: s.Format(),
		ticks:  ticks,
		events: events,
		length: length,
		pause:  make(chan struct{}, 8),
	}, nil
}

// checkHeader validates the MThd chunk. A division word with the high bit
// set is SMPTE timecode.
func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFile, path, err)
	}
	defer f.Close()

	var hdr [14]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return fmt.Errorf("%w: %s: short header: %v", ErrFile, path, err)
	}
	if string(hdr[:4]) != "MThd" {
		return fmt.Errorf("%w: %s: not a standard MIDI file", ErrFile, path)
	}
	if division := binary.BigEndian.Uint16(hdr[12:14]); division&0x8000 != 0 {
		return fmt.Errorf("%w: %s uses SMPTE timecode", ErrTimeFormat, path)
	}
	return nil
}

// readFile parses path, turning a panic inside the reader on a corrupt file
// into an error.
func readFile(path string) (s *smf.SMF, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("corrupt file: %v", r)
		}
	}()
	return smf.ReadFile(path)
}

type tickEvent struct {
	abs uint64
	msg smf.Message
}

// schedule merges tracks by absolute tick and converts ticks to time with
// the tempo map, starting at offset. It returns the playable messages and
// the time of the last event (end of track included).
func schedule(tracks []smf.Track, ticks smf.MetricTicks, offset time.Duration) ([]scheduled, time.Duration) {
	var merged []tickEvent
	for _, tr := range tracks {
		var abs uint64
		for _, ev := range tr {
			abs += uint64(ev.Delta)
			merged = append(merged, tickEvent{abs: abs, msg: ev.Message})
		}
	}
	// stable: ties keep track order, then in-track order
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].abs < merged[j].abs
	})

	var out []scheduled
	bpm := DefaultBPM
	pos := offset
	var last uint64
	for _, ev := range merged {
		pos += ticks.Duration(bpm, uint32(ev.abs-last))
		last = ev.abs

		var tempo float64
		if ev.msg.GetMetaTempo(&tempo) {
			if tempo > 0 {
				bpm = tempo
			}
			continue
		}
		if !ev.msg.IsPlayable() {
			continue
		}
		out = append(out, scheduled{at: pos, msg: append([]byte(nil), ev.msg...)})
	}
	return out, pos
}

func (p *PlaybackSource) Name() string {
	return filepath.Base(p.path)
}

// Length is the playing time of the file at its tempo map.
func (p *PlaybackSource) Length() time.Duration {
	return p.length
}

// Resolution is the file's ticks per quarter note.
func (p *PlaybackSource) Resolution() uint16 {
	return uint16(p.ticks)
}

// Format is the SMF header format (0, 1 or 2).
func (p *PlaybackSource) Format() uint16 {
	return p.format
}

// Events returns the number of playable messages.
func (p *PlaybackSource) Events() int {
	return len(p.events)
}

// Each calls fn for every playable message in order, stamped with its
// position in the file instead of wall time.
func (p *PlaybackSource) Each(fn func(RawEvent)) {
	for _, ev := range p.events {
		fn(RawEvent{Timestamp: ev.at, Bytes: append([]byte(nil), ev.msg...)})
	}
}

func (p *PlaybackSource) Epoch() Epoch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

// Start captures the epoch and starts the scheduler goroutine. The stream
// ends when the last event has been sent.
func (p *PlaybackSource) Start(ctx context.Context, d *Distributor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.started = true
	p.epoch = NewEpoch()
	p.dist = d
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(runCtx, p.epoch, d)
	return nil
}

// TogglePause suspends or resumes playback without losing the position.
// Safe from any goroutine; never blocks.
func (p *PlaybackSource) TogglePause() {
	select {
	case p.pause <- struct{}{}:
	default:
	}
}

// Paused reports whether playback is suspended.
func (p *PlaybackSource) Paused() bool {
	return p.paused.Load()
}

// run is the scheduler: it waits for each event's file position, measured
// in played (unpaused) time, and sends it stamped with epoch time.
func (p *PlaybackSource) run(ctx context.Context, epoch Epoch, d *Distributor) {
	defer p.wg.Done()
	defer d.Close()

	var played time.Duration // file position at resumedAt
	resumedAt := time.Now()
	position := func() time.Duration {
		if p.paused.Load() {
			return played
		}
		return played + time.Since(resumedAt)
	}

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for i := 0; i < len(p.events); {
		var timerC <-chan time.Time
		if !p.paused.Load() {
			ev := p.events[i]
			if wait := ev.at - position(); wait > 0 {
				timer.Reset(wait)
				timerC = timer.C
			} else {
				if ctx.Err() != nil {
					return
				}
				d.Send(RawEvent{Timestamp: epoch.Since(), Bytes: ev.msg})
				i++
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-p.pause:
			if p.paused.Load() {
				resumedAt = time.Now()
				p.paused.Store(false)
				debug.Log("player", "resumed at %v", played)
			} else {
				played = position()
				p.paused.Store(true)
				debug.Log("player", "paused at %v", played)
			}
		case <-timerC:
		}
	}
	debug.L().Info("playback finished", zap.String("file", p.Name()))
}

// Close stops playback and waits for the scheduler to exit.
func (p *PlaybackSource) Close() error {
	p.mu.Lock()
	cancel, d := p.cancel, p.dist
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	if d != nil {
		d.Close()
	}
	return nil
}
