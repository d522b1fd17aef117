package heuristics

import "github.com/turnmend/turnmend/pkg/token"

const microTurnSkipConfidence = 0.9

// collapseMicroTurns relabels any turn shorter than cfg.MicroTurnMS to the
// shared speaker of its immediate predecessor and successor, provided those
// two turns agree and differ from the short turn's own speaker, and the
// short turn's mean speaker-confidence is below the skip threshold.
func collapseMicroTurns(tokens []token.Token, turns []token.Turn, cfg Config) []token.Change {
	var changes []token.Change

	for i := 1; i < len(turns)-1; i++ {
		cur := turns[i]
		if cur.Duration() >= cfg.MicroTurnMS {
			continue
		}

		prev := turns[i-1]
		next := turns[i+1]
		if prev.Speaker != next.Speaker || prev.Speaker == cur.Speaker {
			continue
		}

		if meanSpeakerConfidence(tokens, cur) >= microTurnSkipConfidence {
			continue
		}

		target := prev.Speaker
		for idx := cur.FirstIdx; idx <= cur.LastIdx; idx++ {
			if tokens[idx].Speaker == target {
				continue
			}
			changes = append(changes, token.Change{
				TokenID: tokens[idx].ID,
				From:    tokens[idx].Speaker,
				To:      target,
				Stage:   token.StageHeuristics,
				Reason:  token.ReasonJitterShortTurn,
			})
			tokens[idx].Speaker = target
		}
	}

	return changes
}

func meanSpeakerConfidence(tokens []token.Token, t token.Turn) float64 {
	sum := 0.0
	for idx := t.FirstIdx; idx <= t.LastIdx; idx++ {
		sum += tokens[idx].SpeakerConfidence
	}
	return sum / float64(t.TokenCount())
}
