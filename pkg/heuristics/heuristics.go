// Package heuristics implements Stage H: deterministic, idempotent
// pre-labeling applied once after Stage 0 and before Stage 1. Heuristic
// changes are final unless Stage 2 reconciliation later disturbs them.
package heuristics

import "github.com/turnmend/turnmend/pkg/token"

const floorGuardMaxExcursionTokens = 2

// Run applies micro-turn collapse, the backchannel rule, and the
// floor-holding excursion guard, in that order, to a copy of tokens. It
// returns the (possibly relabeled) tokens, the turns derived from them, and
// the ordered list of changes made.
func Run(input []token.Token, cfg Config) ([]token.Token, []token.Turn, []token.Change) {
	tokens := append([]token.Token(nil), input...)
	turns := token.RecomputeTurns(tokens)

	var changes []token.Change

	microChanges := collapseMicroTurns(tokens, turns, cfg)
	changes = append(changes, microChanges...)
	if len(microChanges) > 0 {
		turns = token.RecomputeTurns(tokens)
	}

	backChanges := reattributeBackchannels(tokens, cfg)
	changes = append(changes, backChanges...)
	if len(backChanges) > 0 {
		turns = token.RecomputeTurns(tokens)
	}

	reverted := guardFloorExcursions(tokens, turns, cfg, changes)
	if len(reverted) > 0 {
		turns = token.RecomputeTurns(tokens)
		changes = pruneReverted(changes, reverted)
	}

	return tokens, turns, changes
}

// guardFloorExcursions reverts any micro-turn-collapse change that left a
// turn of floorGuardMaxExcursionTokens or fewer tokens attributed to a
// speaker who was not holding the floor immediately before that turn. The
// backchannel rule is exempt: its entire purpose is to move a token away
// from the floor holder, so a short resulting turn is the intended outcome,
// not a flip to be penalized.
func guardFloorExcursions(tokens []token.Token, turns []token.Turn, cfg Config, changes []token.Change) map[token.ID]bool {
	guarded := make(map[token.ID]token.Change, len(changes))
	for _, c := range changes {
		if c.Reason == token.ReasonBackchannelAttribution {
			continue
		}
		guarded[c.TokenID] = c
	}

	reverted := make(map[token.ID]bool)
	tracker := newFloorTracker(cfg.FloorWindowMS)

	for _, t := range turns {
		if t.TokenCount() > floorGuardMaxExcursionTokens {
			for idx := t.FirstIdx; idx <= t.LastIdx; idx++ {
				tracker.advance(tokens[idx])
			}
			continue
		}

		holderBefore := tracker.holder()
		involvesGuardedChange := false
		for idx := t.FirstIdx; idx <= t.LastIdx; idx++ {
			if _, ok := guarded[tokens[idx].ID]; ok {
				involvesGuardedChange = true
			}
		}

		if involvesGuardedChange && holderBefore != "" && holderBefore != t.Speaker {
			for idx := t.FirstIdx; idx <= t.LastIdx; idx++ {
				if c, ok := guarded[tokens[idx].ID]; ok {
					tokens[idx].Speaker = c.From
					reverted[tokens[idx].ID] = true
				}
			}
		}

		for idx := t.FirstIdx; idx <= t.LastIdx; idx++ {
			tracker.advance(tokens[idx])
		}
	}

	return reverted
}

func pruneReverted(changes []token.Change, reverted map[token.ID]bool) []token.Change {
	kept := changes[:0]
	for _, c := range changes {
		if reverted[c.TokenID] {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
