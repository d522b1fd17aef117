package localedit

import (
	"math"
	"strings"

	"github.com/turnmend/turnmend/pkg/token"
)

const (
	switchWeight    = 5.0
	shortTurnWeight = 2.0
	coherenceWeight = 1.0
	shortTurnMS     = 700
)

// costDelta computes the patch cost formula for a window in isolation,
// comparing the editable tokens' speakers before and after applying a
// patch's relabels, and returns the result as a per-token average so the
// configured threshold is meaningful across differently sized windows.
func costDelta(before []TokenView, relabels []Relabel) float64 {
	if len(before) == 0 {
		return 0
	}

	after := applyRelabels(before, relabels)

	switchesBefore := countSwitches(before)
	switchesAfter := countSwitches(after)

	shortBefore := countShortTurns(before)
	shortAfter := countShortTurns(after)

	coherenceBefore := lexicalCoherence(before)
	coherenceAfter := lexicalCoherence(after)
	gain := coherenceAfter - coherenceBefore

	cost := switchWeight*float64(switchesAfter-switchesBefore) +
		shortTurnWeight*float64(shortAfter-shortBefore) -
		coherenceWeight*gain

	return cost / float64(len(before))
}

func applyRelabels(views []TokenView, relabels []Relabel) []TokenView {
	bySpeaker := make(map[token.ID]token.Speaker, len(relabels))
	for _, r := range relabels {
		bySpeaker[r.TokenID] = r.NewSpeaker
	}

	out := make([]TokenView, len(views))
	copy(out, views)
	for i, v := range out {
		if s, ok := bySpeaker[v.TokenID]; ok {
			v.Speaker = s
			out[i] = v
		}
	}
	return out
}

func countSwitches(views []TokenView) int {
	n := 0
	for i := 1; i < len(views); i++ {
		if views[i].Speaker != views[i-1].Speaker {
			n++
		}
	}
	return n
}

// countShortTurns counts maximal same-speaker runs shorter than
// shortTurnMS within the window's editable tokens.
func countShortTurns(views []TokenView) int {
	if len(views) == 0 {
		return 0
	}

	n := 0
	start := 0
	for i := 1; i <= len(views); i++ {
		if i < len(views) && views[i].Speaker == views[start].Speaker {
			continue
		}
		duration := views[i-1].EndMS - views[start].StartMS
		if duration < shortTurnMS {
			n++
		}
		start = i
	}
	return n
}

// lexicalCoherence computes the cosine similarity between the two
// per-speaker term-frequency vectors built from the window's words
// (restricted to whichever two speakers are present; windows with more
// than two distinct speakers use the two with the most tokens, since the
// formula is defined pairwise).
func lexicalCoherence(views []TokenView) float64 {
	bySpeaker := make(map[token.Speaker]map[string]int)
	for _, v := range views {
		word := strings.ToLower(v.Word)
		if bySpeaker[v.Speaker] == nil {
			bySpeaker[v.Speaker] = make(map[string]int)
		}
		bySpeaker[v.Speaker][word]++
	}

	if len(bySpeaker) < 2 {
		return 1.0 // a single speaker is trivially self-coherent
	}

	speakers := topTwoSpeakers(views, bySpeaker)
	return cosineSimilarity(bySpeaker[speakers[0]], bySpeaker[speakers[1]])
}

func topTwoSpeakers(views []TokenView, bySpeaker map[token.Speaker]map[string]int) [2]token.Speaker {
	counts := make(map[token.Speaker]int, len(bySpeaker))
	for _, v := range views {
		counts[v.Speaker]++
	}

	var ordered []token.Speaker
	for s := range bySpeaker {
		ordered = append(ordered, s)
	}
	// Stable, deterministic ordering: most tokens first, ties broken
	// lexically.
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if counts[ordered[j]] > counts[ordered[i]] ||
				(counts[ordered[j]] == counts[ordered[i]] && ordered[j] < ordered[i]) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	var top [2]token.Speaker
	top[0] = ordered[0]
	if len(ordered) > 1 {
		top[1] = ordered[1]
	}
	return top
}

func cosineSimilarity(a, b map[string]int) float64 {
	var dot, normA, normB float64
	for term, countA := range a {
		dot += float64(countA) * float64(b[term])
		normA += float64(countA) * float64(countA)
	}
	for _, countB := range b {
		normB += float64(countB) * float64(countB)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
