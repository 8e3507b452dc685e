package roll

import (
	"sort"
	"time"
)

// Sampler is what renderers draw from.
type Sampler interface {
	Sample(begin, end time.Duration, n int) []Bucket
}

var _ Sampler = (*Timeline)(nil)

// Sample returns n buckets for the window [begin, end). Bucket k holds the
// voices sounding at begin + k*(end-begin)/n. The whole call reads one
// consistent state of the timeline; writes made meanwhile show up on the
// next call.
//
// n == 0 yields no buckets, and an empty or inverted window yields n empty
// buckets.
func (tl *Timeline) Sample(begin, end time.Duration, n int) []Bucket {
	if n <= 0 {
		return []Bucket{}
	}
	out := make([]Bucket, n)
	if end <= begin {
		return out
	}

	tl.mu.RLock()
	defer tl.mu.RUnlock()

	// notes beginning at or after end cannot sound in the window
	notes := tl.notes
	if !tl.unordered {
		notes = notes[:sort.Search(len(notes), func(i int) bool {
			return notes[i].Begin >= end
		})]
	}

	var candidates []Note
	for _, note := range notes {
		if note.Overlaps(begin, end) {
			candidates = append(candidates, note)
		}
	}
	if len(candidates) == 0 {
		return out
	}

	interval := (end - begin) / time.Duration(n)
	for k := range out {
		t := begin + time.Duration(k)*interval
		for _, note := range candidates {
			if !note.Active(t) {
				continue
			}
			v := note.Voice()
			if !out[k].Has(v) {
				out[k] = append(out[k], v)
			}
		}
	}
	return out
}
