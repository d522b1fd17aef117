package normalize

import (
	"sort"

	"github.com/turnmend/turnmend/pkg/token"
)

// Zone is a contiguous time interval flagged for Stage 1 attention by the
// union of the four problem-zone detectors.
type Zone struct {
	StartMS int64
	EndMS   int64
}

func (z Zone) overlaps(o Zone) bool {
	return z.StartMS <= o.EndMS && o.StartMS <= z.EndMS
}

// DetectZones runs the four overlapping detectors over tokens (already in
// start-time order) and merges their output into maximal intervals.
func DetectZones(tokens []token.Token, cfg Config) []Zone {
	_ = cfg // reserved for future detector tuning; thresholds are currently fixed

	var zones []Zone
	zones = append(zones, detectJitter(tokens)...)
	zones = append(zones, detectShortTurns(tokens)...)
	zones = append(zones, detectOverlapAdjacent(tokens)...)
	zones = append(zones, detectLowConfidence(tokens)...)
	return mergeZones(zones)
}

// detectJitter flags any 10-second sliding interval containing more than 3
// speaker transitions.
func detectJitter(tokens []token.Token) []Zone {
	const windowMS = 10_000
	const maxTransitions = 3

	var zones []Zone
	left := 0
	for right := 0; right < len(tokens); right++ {
		for tokens[right].StartMS-tokens[left].StartMS > windowMS {
			left++
		}
		transitions := countTransitions(tokens[left : right+1])
		if transitions > maxTransitions {
			zones = append(zones, Zone{StartMS: tokens[left].StartMS, EndMS: tokens[right].EndMS})
		}
	}
	return zones
}

func countTransitions(tokens []token.Token) int {
	n := 0
	for i := 1; i < len(tokens); i++ {
		if tokens[i].Speaker != tokens[i-1].Speaker {
			n++
		}
	}
	return n
}

// detectShortTurns flags [turn.start-1s, turn.end+1s] for any turn shorter
// than 800ms.
func detectShortTurns(tokens []token.Token) []Zone {
	const shortTurnMS = 800
	const paddingMS = 1_000

	turns := token.RecomputeTurns(append([]token.Token(nil), tokens...))
	var zones []Zone
	for _, t := range turns {
		if t.Duration() < shortTurnMS {
			zones = append(zones, Zone{StartMS: t.StartMS - paddingMS, EndMS: t.EndMS + paddingMS})
		}
	}
	return zones
}

// detectOverlapAdjacent flags a ±2s zone around every token with the
// overlap flag set.
func detectOverlapAdjacent(tokens []token.Token) []Zone {
	const paddingMS = 2_000

	var zones []Zone
	for _, t := range tokens {
		if t.Overlap {
			zones = append(zones, Zone{StartMS: t.StartMS - paddingMS, EndMS: t.EndMS + paddingMS})
		}
	}
	return zones
}

// detectLowConfidence flags any contiguous run >=2s whose mean
// speaker-confidence is below 0.6.
func detectLowConfidence(tokens []token.Token) []Zone {
	const minRunMS = 2_000
	const confThreshold = 0.6

	var zones []Zone
	n := len(tokens)
	for start := 0; start < n; start++ {
		sum := 0.0
		count := 0
		for end := start; end < n; end++ {
			sum += tokens[end].SpeakerConfidence
			count++
			runMS := tokens[end].EndMS - tokens[start].StartMS
			if runMS < minRunMS {
				continue
			}
			mean := sum / float64(count)
			if mean < confThreshold {
				zones = append(zones, Zone{StartMS: tokens[start].StartMS, EndMS: tokens[end].EndMS})
			}
		}
	}
	return zones
}

// mergeZones sorts zones by start and merges any that overlap into maximal
// intervals.
func mergeZones(zones []Zone) []Zone {
	if len(zones) == 0 {
		return nil
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].StartMS < zones[j].StartMS })

	merged := []Zone{zones[0]}
	for _, z := range zones[1:] {
		last := &merged[len(merged)-1]
		if last.overlaps(z) {
			if z.EndMS > last.EndMS {
				last.EndMS = z.EndMS
			}
			continue
		}
		merged = append(merged, z)
	}
	return merged
}

// Intersects reports whether [startMS, endMS] intersects any zone.
func Intersects(zones []Zone, startMS, endMS int64) bool {
	for _, z := range zones {
		if z.overlaps(Zone{StartMS: startMS, EndMS: endMS}) {
			return true
		}
	}
	return false
}
