package midi

import "context"

// Source produces RawEvents into a Distributor. Live capture and file
// playback both implement it; one is chosen at startup.
type Source interface {
	// Start captures the epoch and begins producing. The distributor is
	// closed by the source when its stream ends (disconnect, end of file or
	// Close).
	Start(ctx context.Context, d *Distributor) error
	// Epoch returns the time origin; zero until Start.
	Epoch() Epoch
	// Name describes the source for display.
	Name() string
	// Close stops production and releases the port or file.
	Close() error
}

// Pauser is implemented by sources that can suspend playback.
type Pauser interface {
	TogglePause()
	Paused() bool
}

// Options selects and configures a source.
type Options struct {
	File string // non-empty selects playback
	Live LiveOptions
}

// Open returns a playback source when a file is given, a live source
// otherwise.
func Open(opts Options) (Source, error) {
	if opts.File != "" {
		return OpenPlayback(opts.File)
	}
	return OpenLive(opts.Live)
}
