package midi

import (
	"errors"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// Port listing can hang on a wedged CoreMIDI server.
const portScanTimeout = 3 * time.Second

var errScanTimeout = errors.New("timed out listing MIDI ports")

// DefaultExcluded names virtual/system ports that are never picked
// automatically.
var DefaultExcluded = []string{"Midi Through", "Through Port", "Dummy"}

// InPorts lists the input ports, giving up after a few seconds.
func InPorts() ([]drivers.In, error) {
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	select {
	case ins := <-ch:
		return ins, nil
	case <-time.After(portScanTimeout):
		return nil, errScanTimeout
	}
}

// InPortNames lists input port names.
func InPortNames() ([]string, error) {
	ins, err := InPorts()
	if err != nil {
		return nil, err
	}
	return portNames(ins), nil
}

func portNames(ins []drivers.In) []string {
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// pickPort chooses an input port by name. An explicit name matches exactly,
// then as a substring. Without one, excluded ports are skipped and preferred
// ports win over the first remaining port.
func pickPort(names []string, opts LiveOptions) (int, bool) {
	if opts.Port != "" {
		for i, n := range names {
			if n == opts.Port {
				return i, true
			}
		}
		for i, n := range names {
			if strings.Contains(n, opts.Port) {
				return i, true
			}
		}
		return -1, false
	}

	excluded := opts.Excluded
	if excluded == nil {
		excluded = DefaultExcluded
	}

	first := -1
	for i, n := range names {
		if matchesAny(n, excluded) {
			continue
		}
		if matchesAny(n, opts.Preferred) {
			return i, true
		}
		if first < 0 {
			first = i
		}
	}
	return first, first >= 0
}

func matchesAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
