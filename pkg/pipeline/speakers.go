package pipeline

import (
	"fmt"
	"sort"

	"github.com/turnmend/turnmend/pkg/token"
)

// MaxSpeakersPolicy decides what happens when the input carries more
// distinct speaker labels than MaxSpeakers allows.
type MaxSpeakersPolicy string

const (
	// PolicyMerge folds every speaker beyond the limit into whichever
	// allowed speaker was most recently active before that speaker's
	// first token — the closest thing to "recent floor-score history"
	// available without re-running the full heuristic floor tracker
	// against labels that haven't been decided yet.
	PolicyMerge MaxSpeakersPolicy = "merge"
	// PolicyReject fails the run instead of clamping.
	PolicyReject MaxSpeakersPolicy = "reject"
)

// clampSpeakers enforces maxSpeakers over tokens (already in start-time
// order), returning a copy with any excess speaker labels merged (or an
// error, under PolicyReject) and the resulting allowed-speaker set.
// Tokens are never dropped; only their Speaker field is ever rewritten,
// and every such rewrite is returned as a Change so it isn't silently
// invisible to the rest of the pipeline.
func clampSpeakers(tokens []token.Token, maxSpeakers int, policy MaxSpeakersPolicy) ([]token.Token, []token.Speaker, []token.Change, error) {
	if maxSpeakers <= 0 {
		maxSpeakers = 4
	}

	firstSeen := make(map[token.Speaker]int)
	var order []token.Speaker
	for i, t := range tokens {
		if _, ok := firstSeen[t.Speaker]; !ok {
			firstSeen[t.Speaker] = i
			order = append(order, t.Speaker)
		}
	}

	if len(order) <= maxSpeakers {
		return tokens, order, nil, nil
	}

	if policy == PolicyReject {
		return nil, nil, nil, fmt.Errorf("%w: input carries %d distinct speakers, max_speakers is %d", token.ErrTooManySpeakers, len(order), maxSpeakers)
	}

	allowed := order[:maxSpeakers]
	excess := order[maxSpeakers:]
	sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })

	out := append([]token.Token(nil), tokens...)
	var changes []token.Change

	for _, s := range excess {
		target := closestAllowedBefore(tokens, firstSeen[s], allowed)
		for i := range out {
			if out[i].Speaker != s {
				continue
			}
			changes = append(changes, token.Change{
				TokenID: out[i].ID, From: s, To: target,
				Stage: token.StageHeuristics, Reason: token.ReasonDoNotChange,
			})
			out[i].Speaker = target
		}
	}

	return out, allowed, changes, nil
}

// closestAllowedBefore finds whichever allowed speaker most recently held
// a token before index idx, falling back to the lexically-first allowed
// speaker if none precede it.
func closestAllowedBefore(tokens []token.Token, idx int, allowed []token.Speaker) token.Speaker {
	allowedSet := make(map[token.Speaker]bool, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = true
	}

	for i := idx - 1; i >= 0; i-- {
		if allowedSet[tokens[i].Speaker] {
			return tokens[i].Speaker
		}
	}
	return allowed[0]
}
