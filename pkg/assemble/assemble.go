// Package assemble implements Stage 3: a mechanical pass that materializes
// Stage 2's reconciled labels onto the canonical token vector, recomputes
// turn boundaries, and merges the full change log ordered by token ID, then
// by stage.
package assemble

import (
	"sort"

	"github.com/turnmend/turnmend/pkg/token"
)

// Result is the final labeling ready for encoding.
type Result struct {
	Tokens  []token.Token
	Turns   []token.Turn
	Changes []token.Change
}

// Run recomputes turns from tokens (whose Speaker fields already carry
// Stage 2's winning labels) and concatenates every stage's change records
// in a stable, deterministic order: by token ID, then by stage.
func Run(tokens []token.Token, heuristicChanges, reconcileChanges []token.Change) Result {
	turns := token.RecomputeTurns(tokens)

	changes := make([]token.Change, 0, len(heuristicChanges)+len(reconcileChanges))
	changes = append(changes, heuristicChanges...)
	changes = append(changes, reconcileChanges...)

	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].TokenID != changes[j].TokenID {
			return changes[i].TokenID < changes[j].TokenID
		}
		return stageOrder(changes[i].Stage) < stageOrder(changes[j].Stage)
	})

	return Result{Tokens: tokens, Turns: turns, Changes: changes}
}

func stageOrder(s token.ChangeStage) int {
	switch s {
	case token.StageHeuristics:
		return 0
	case token.StageReconcile:
		return 1
	default:
		return 2
	}
}
