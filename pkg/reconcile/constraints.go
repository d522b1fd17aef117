package reconcile

import (
	"github.com/turnmend/turnmend/pkg/token"
)

// applyStableSpanProtection reverts a ballot's winner back to its original
// (Stage 0) label when the token falls inside a stable span, unless at
// least two distinct windows agreed on the same different label.
func applyStableSpanProtection(order []token.ID, original []token.Token, ballots map[token.ID]*ballot, cfg Config) bool {
	spans := detectStableSpans(original, cfg)
	if len(spans) == 0 {
		return false
	}

	originalByID := make(map[token.ID]token.Speaker, len(original))
	for _, t := range original {
		originalByID[t.ID] = t.Speaker
	}

	changed := false
	for _, id := range order {
		b := ballots[id]
		orig, ok := originalByID[id]
		if !ok || !inAnySpan(id, spans) {
			continue
		}
		if b.winner == orig {
			continue
		}

		agreeing := b.windowVotes[b.winner]
		if agreeing >= 2 {
			continue
		}

		b.winner = orig
		b.winnerReason = token.ReasonDoNotChange
		changed = true
	}
	return changed
}

type stableSpan struct {
	ids map[token.ID]bool
}

func inAnySpan(id token.ID, spans []stableSpan) bool {
	for _, s := range spans {
		if s.ids[id] {
			return true
		}
	}
	return false
}

// detectStableSpans finds maximal runs (≥ cfg.StableSpanMinMS long, uniform
// speaker, mean speaker-confidence ≥ cfg.StableSpanMinConfidence) in the
// Stage 0 token stream.
func detectStableSpans(original []token.Token, cfg Config) []stableSpan {
	var spans []stableSpan

	start := 0
	for i := 1; i <= len(original); i++ {
		if i < len(original) && original[i].Speaker == original[start].Speaker {
			continue
		}
		run := original[start:i]
		duration := run[len(run)-1].EndMS - run[0].StartMS
		if duration >= cfg.StableSpanMinMS && meanConfidence(run) >= cfg.StableSpanMinConfidence {
			ids := make(map[token.ID]bool, len(run))
			for _, t := range run {
				ids[t.ID] = true
			}
			spans = append(spans, stableSpan{ids: ids})
		}
		start = i
	}
	return spans
}

func meanConfidence(tokens []token.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += t.SpeakerConfidence
	}
	return sum / float64(len(tokens))
}

// applyMinTurnDuration relabels any provisional turn shorter than
// cfg.MinTurnDurationMS to the speaker flanking it on both sides, skipping
// single-token turns the heuristic stage already established via the
// backchannel rule.
func applyMinTurnDuration(order []token.ID, tokensByID map[token.ID]token.Token, ballots map[token.ID]*ballot, protected map[token.ID]bool, cfg Config) bool {
	type run struct {
		startIdx, endIdx int
		speaker          token.Speaker
	}

	var runs []run
	start := 0
	for i := 1; i <= len(order); i++ {
		if i < len(order) && ballots[order[i]].winner == ballots[order[start]].winner {
			continue
		}
		runs = append(runs, run{startIdx: start, endIdx: i - 1, speaker: ballots[order[start]].winner})
		start = i
	}

	changed := false
	for i := 1; i < len(runs)-1; i++ {
		r := runs[i]
		first := tokensByID[order[r.startIdx]]
		last := tokensByID[order[r.endIdx]]
		duration := last.EndMS - first.StartMS
		if duration >= cfg.MinTurnDurationMS {
			continue
		}

		before := runs[i-1]
		after := runs[i+1]
		if before.speaker != after.speaker {
			continue
		}
		if r.endIdx == r.startIdx && protected[order[r.startIdx]] {
			continue // backchannel single-token turn, preserved
		}

		for idx := r.startIdx; idx <= r.endIdx; idx++ {
			if ballots[order[idx]].winner != before.speaker {
				ballots[order[idx]].winner = before.speaker
				ballots[order[idx]].winnerReason = token.ReasonJitterShortTurn
				changed = true
			}
		}
		runs[i].speaker = before.speaker
	}
	return changed
}

// applyMaxSwitchRate iteratively reverts the lowest-weight flip inside any
// sliding cfg.SwitchRateWindowMS interval that contains more than
// cfg.MaxSwitchesPerWindow label transitions. The scan is a continuous
// two-pointer pass over the sorted transition times (the same left/right
// advance detectJitter uses for the jitter zones), so asymmetric
// clusterings like two pairs of transitions at either end of the same
// interval are caught, not just transitions near each other's centers.
func applyMaxSwitchRate(order []token.ID, tokensByID map[token.ID]token.Token, ballots map[token.ID]*ballot, cfg Config) bool {
	changed := false

	for {
		transitions := switchPositions(order, ballots)

		times := make([]int64, len(transitions))
		for i, pos := range transitions {
			times[i] = tokensByID[order[pos]].StartMS
		}

		// First windowMS-wide interval holding too many transitions.
		lo, hi := -1, -1
		left := 0
		for right := 0; right < len(transitions); right++ {
			for times[right]-times[left] > cfg.SwitchRateWindowMS {
				left++
			}
			if right-left+1 > cfg.MaxSwitchesPerWindow {
				lo, hi = left, right
				break
			}
		}
		if lo == -1 {
			return changed
		}

		// Revert the lowest-weight flip within the offending interval.
		lowestIdx := -1
		lowestWeight := 0.0
		for _, pos := range transitions[lo : hi+1] {
			w := ballots[order[pos]].winnerWeight
			if lowestIdx == -1 || w < lowestWeight {
				lowestIdx, lowestWeight = pos, w
			}
		}

		prevSpeaker := ballots[order[lowestIdx-1]].winner
		if ballots[order[lowestIdx]].winner == prevSpeaker {
			return changed
		}
		ballots[order[lowestIdx]].winner = prevSpeaker
		ballots[order[lowestIdx]].winnerReason = token.ReasonJitterShortTurn
		changed = true
	}
}

func switchPositions(order []token.ID, ballots map[token.ID]*ballot) []int {
	var positions []int
	for i := 1; i < len(order); i++ {
		if ballots[order[i]].winner != ballots[order[i-1]].winner {
			positions = append(positions, i)
		}
	}
	return positions
}

// orderTokenIDs returns token IDs in stream order.
func orderTokenIDs(tokens []token.Token) []token.ID {
	ids := make([]token.ID, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return ids
}

func indexTokensByID(tokens []token.Token) map[token.ID]token.Token {
	m := make(map[token.ID]token.Token, len(tokens))
	for _, t := range tokens {
		m[t.ID] = t
	}
	return m
}

// protectedBackchannelTokens returns the set of token IDs whose label was
// set by the heuristic backchannel rule, which the minimum-turn-duration
// pass must not undo.
func protectedBackchannelTokens(changes []token.Change) map[token.ID]bool {
	protected := make(map[token.ID]bool)
	for _, c := range changes {
		if c.Stage == token.StageHeuristics && c.Reason == token.ReasonBackchannelAttribution {
			protected[c.TokenID] = true
		}
	}
	return protected
}
