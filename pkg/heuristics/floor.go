package heuristics

import (
	"sort"

	"github.com/turnmend/turnmend/pkg/token"
)

func sortSpeakers(speakers []token.Speaker) {
	sort.Slice(speakers, func(i, j int) bool { return speakers[i] < speakers[j] })
}

// floorTracker maintains a decaying per-speaker "floor score" over a
// sliding window: the sum of token durations attributed to each speaker in
// the last FloorWindowMS milliseconds.
type floorTracker struct {
	windowMS int64

	// entries holds (speaker, startMS, endMS) for tokens still inside the
	// trailing window, oldest first.
	entries []floorEntry
	scores  map[token.Speaker]int64
}

type floorEntry struct {
	speaker token.Speaker
	startMS int64
	endMS   int64
}

func newFloorTracker(windowMS int64) *floorTracker {
	return &floorTracker{
		windowMS: windowMS,
		scores:   make(map[token.Speaker]int64),
	}
}

// advance pushes tok into the tracker and evicts entries that have fallen
// out of the trailing window relative to tok's start time.
func (f *floorTracker) advance(tok token.Token) {
	f.entries = append(f.entries, floorEntry{speaker: tok.Speaker, startMS: tok.StartMS, endMS: tok.EndMS})
	f.scores[tok.Speaker] += tok.Duration()

	cutoff := tok.StartMS - f.windowMS
	i := 0
	for i < len(f.entries) && f.entries[i].endMS < cutoff {
		evicted := f.entries[i]
		f.scores[evicted.speaker] -= evicted.endMS - evicted.startMS
		i++
	}
	if i > 0 {
		f.entries = append([]floorEntry(nil), f.entries[i:]...)
	}
}

// holder returns the speaker with the largest floor score at the current
// point in time, or "" if no speaker has accumulated any score yet.
func (f *floorTracker) holder() token.Speaker {
	var best token.Speaker
	var bestScore int64 = -1
	for _, spk := range f.sortedSpeakers() {
		score := f.scores[spk]
		if score > bestScore {
			best = spk
			bestScore = score
		}
	}
	return best
}

// sortedSpeakers returns the speakers with a tracked score in a stable
// (lexical) order so tie-breaking in holder is deterministic across runs.
func (f *floorTracker) sortedSpeakers() []token.Speaker {
	speakers := make([]token.Speaker, 0, len(f.scores))
	for spk := range f.scores {
		speakers = append(speakers, spk)
	}
	sortSpeakers(speakers)
	return speakers
}
