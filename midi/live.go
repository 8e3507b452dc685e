package midi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-midiroll/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// LiveOptions picks and watches an input port.
type LiveOptions struct {
	Port      string   // exact or substring port name; empty picks automatically
	Preferred []string // name patterns picked first
	Excluded  []string // name patterns never auto-picked (nil = DefaultExcluded)
	PollRate  time.Duration
}

// LiveSource captures events from a hardware input port.
type LiveSource struct {
	in       drivers.In
	name     string
	pollRate time.Duration
	ports    func() ([]string, error) // lists current port names

	mu      sync.Mutex
	epoch   Epoch
	dist    *Distributor
	stop    func()
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
	endOnce sync.Once
}

// OpenLive finds the input port. It fails with ErrSourceUnavailable when
// there is none.
func OpenLive(opts LiveOptions) (*LiveSource, error) {
	ins, err := InPorts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	idx, ok := pickPort(portNames(ins), opts)
	if !ok {
		if opts.Port != "" {
			return nil, fmt.Errorf("%w: no input port matching %q", ErrSourceUnavailable, opts.Port)
		}
		return nil, ErrSourceUnavailable
	}

	return newLiveSource(ins[idx], opts.PollRate), nil
}

func newLiveSource(in drivers.In, pollRate time.Duration) *LiveSource {
	if pollRate <= 0 {
		pollRate = time.Second
	}
	return &LiveSource{
		in:       in,
		name:     in.String(),
		pollRate: pollRate,
		ports:    InPortNames,
	}
}

func (l *LiveSource) Name() string {
	return l.name
}

func (l *LiveSource) Epoch() Epoch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epoch
}

// Start opens the port and forwards every message to d, stamped with its
// arrival time since the epoch. The callback runs on the driver's thread and
// only stamps and queues. When the port cannot be opened d is closed, so
// consumers see the end of the stream.
func (l *LiveSource) Start(ctx context.Context, d *Distributor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrStarted
	}

	epoch := NewEpoch()
	stop, err := gomidi.ListenTo(l.in, func(msg gomidi.Message, _ int32) {
		// the driver's timestamps count from the first message, not from
		// the start of listening
		d.Send(RawEvent{
			Timestamp: epoch.Since(),
			Bytes:     append([]byte(nil), msg...),
		})
	})
	if err != nil {
		if cerr := l.in.Close(); cerr != nil {
			debug.Log("live", "close %s: %v", l.name, cerr)
		}
		d.Close()
		return fmt.Errorf("%w: listen on %s: %v", ErrSourceUnavailable, l.name, err)
	}

	l.started = true
	l.epoch = epoch
	l.dist = d
	l.stop = stop

	watchCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	go l.watch(watchCtx)

	debug.L().Info("live capture started", zap.String("port", l.name))
	return nil
}

// watch polls the port list and ends the stream when our port disappears
// or ctx is cancelled.
func (l *LiveSource) watch(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.pollRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.end()
			return
		case <-ticker.C:
			names, err := l.ports()
			if err != nil {
				// driver is hung, try again next tick
				debug.Log("live", "port scan: %v", err)
				continue
			}
			if !containsName(names, l.name) {
				debug.L().Warn("input port disappeared", zap.String("port", l.name))
				l.end()
				return
			}
		}
	}
}

// end stops listening and closes the stream once.
func (l *LiveSource) end() {
	l.endOnce.Do(func() {
		l.mu.Lock()
		stop, d := l.stop, l.dist
		l.mu.Unlock()

		if stop != nil {
			stop()
		}
		if err := l.in.Close(); err != nil {
			debug.Log("live", "close %s: %v", l.name, err)
		}
		if d != nil {
			d.Close()
		}
	})
}

// Close stops capture and waits for the watcher to exit.
func (l *LiveSource) Close() error {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
	l.end()
	return nil
}
