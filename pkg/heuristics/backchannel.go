package heuristics

import (
	"strings"

	"github.com/turnmend/turnmend/pkg/token"
)

const backchannelOverlapMarginMS = 2_000
const backchannelConfidenceCeiling = 0.75

// reattributeBackchannels reassigns acknowledgement words to whichever
// speaker was not holding the floor immediately before that token, provided
// the token's own speaker-confidence is low enough to be suspect. The floor
// tracker is advanced token-by-token through the original
// (pre-backchannel-rule) sequence so "holding the floor" always means "at
// that moment", not across the whole recording.
//
// The token is evaluated by its own properties alone, not by whether it
// already forms its own turn: a mislabeled backchannel carries the
// floor-holder's own (wrong) speaker label by construction, so it is always
// merged into the surrounding turn before this rule runs — requiring it to
// already be an isolated turn would make the rule never fire on the case it
// exists for.
func reattributeBackchannels(tokens []token.Token, cfg Config) []token.Change {
	var changes []token.Change

	tracker := newFloorTracker(cfg.FloorWindowMS)

	for i, tok := range tokens {
		if cfg.BackchannelWords[strings.ToLower(tok.Word)] &&
			tok.SpeakerConfidence < backchannelConfidenceCeiling &&
			nearOverlapRegion(tokens, i) {

			holder := tracker.holder()
			if holder != "" && holder == tok.Speaker {
				if target := otherSpeaker(tokens, i, holder); target != "" && target != tok.Speaker {
					changes = append(changes, token.Change{
						TokenID: tok.ID,
						From:    tok.Speaker,
						To:      target,
						Stage:   token.StageHeuristics,
						Reason:  token.ReasonBackchannelAttribution,
					})
					tokens[i].Speaker = target
				}
			}
		}

		// Advance the floor tracker with the token's original speaker so a
		// just-applied reattribution does not distort subsequent holder
		// computations.
		tracker.advance(tok)
	}

	return changes
}

// nearOverlapRegion reports whether tokens[idx] lies within
// backchannelOverlapMarginMS of any token with the overlap flag set.
func nearOverlapRegion(tokens []token.Token, idx int) bool {
	tok := tokens[idx]
	for _, other := range tokens {
		if !other.Overlap {
			continue
		}
		if abs64(tok.StartMS-other.StartMS) <= backchannelOverlapMarginMS ||
			abs64(tok.EndMS-other.EndMS) <= backchannelOverlapMarginMS {
			return true
		}
	}
	return false
}

// otherSpeaker returns the speaker actually holding the floor before the
// token at idx: it scans backward from idx-1 for the nearest token whose
// speaker differs from exclude (the backchannel's own floor-holder label),
// so in a transcript with more than two distinct speakers the result is
// whoever exclude was actually conversing with at that moment, not an
// arbitrary other label. If idx is the very first token (no predecessor to
// scan), it falls back to scanning forward from idx+1.
func otherSpeaker(tokens []token.Token, idx int, exclude token.Speaker) token.Speaker {
	for i := idx - 1; i >= 0; i-- {
		if tokens[i].Speaker != exclude {
			return tokens[i].Speaker
		}
	}
	for i := idx + 1; i < len(tokens); i++ {
		if tokens[i].Speaker != exclude {
			return tokens[i].Speaker
		}
	}
	return ""
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
