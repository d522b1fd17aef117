package reconcile

import (
	"sort"

	"github.com/turnmend/turnmend/pkg/localedit"
	"github.com/turnmend/turnmend/pkg/token"
)

// surviveTurnEdits decides which proposed splits and merges survive their
// matching vote, per the turn-edit survival rules. Splits are purely
// informational: a split that survives is already reflected in the winning
// labels (Stage 3 recomputes turn boundaries from them). A surviving merge
// that the winning labels do NOT already make redundant forces the later
// turn's tokens onto the earlier turn's label, since that's the only way
// two adjacent turns can be merged when their votes disagree. Returns the
// number of winners it moved; the label-diff pass in Run picks the flips
// up as ordinary change records.
func surviveTurnEdits(order []token.ID, tokensByID map[token.ID]token.Token, ballots map[token.ID]*ballot, outcomes []localedit.Outcome) int {
	// Splits need no enforcement here: a split at T survives exactly when
	// T's winning label already differs from T−1's, which Stage 3's turn
	// recompute reflects automatically. Only merges can change a winner.
	mergeVotes := make(map[[2]int]int)

	for _, o := range outcomes {
		if !o.Accepted {
			continue
		}
		for _, e := range o.Patch.TurnEdits {
			if e.Kind == localedit.TurnEditMerge {
				mergeVotes[mergeKey(e.TurnA, e.TurnB)]++
			}
		}
	}

	keys := make([][2]int, 0, len(mergeVotes))
	for key := range mergeVotes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	moved := 0
	for _, key := range keys {
		if mergeVotes[key] < 2 {
			continue
		}
		turnA, turnB := tokensInTurn(order, tokensByID, key[0]), tokensInTurn(order, tokensByID, key[1])
		if len(turnA) == 0 || len(turnB) == 0 {
			continue
		}
		targetSpeaker := ballots[turnA[0]].winner
		for _, id := range turnB {
			b := ballots[id]
			if b.winner == targetSpeaker {
				continue
			}
			b.winner = targetSpeaker
			b.winnerReason = token.ReasonDialoguePairing
			moved++
		}
	}

	return moved
}

func mergeKey(a, b int) [2]int {
	if a <= b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

func tokensInTurn(order []token.ID, tokensByID map[token.ID]token.Token, turnID int) []token.ID {
	var ids []token.ID
	for _, id := range order {
		if tokensByID[id].TurnID == turnID {
			ids = append(ids, id)
		}
	}
	return ids
}
