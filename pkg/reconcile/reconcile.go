package reconcile

import (
	"github.com/turnmend/turnmend/pkg/localedit"
	"github.com/turnmend/turnmend/pkg/normalize"
	"github.com/turnmend/turnmend/pkg/token"
)

// Input is everything Stage 2 needs: the original (Stage 0) and current
// (heuristic-adjusted) token streams, the heuristic change log, the
// windows Stage 1 was run over, and its outcomes.
type Input struct {
	Original         []token.Token
	Current          []token.Token
	HeuristicChanges []token.Change
	Windows          []normalize.Window
	Outcomes         []localedit.Outcome
}

// Result is Stage 2's output: the current token stream with winning
// labels applied, and the change records documenting every flip.
type Result struct {
	Tokens  []token.Token
	Changes []token.Change

	// Iterations is how many constraint-pass cycles actually ran before
	// reaching a fixed point (or the configured cap).
	Iterations int
	Converged  bool
}

// Run executes the full reconciliation pass: vote aggregation followed by
// the global constraint passes iterated to a fixed point (capped at
// cfg.MaxIterations).
func Run(input Input, cfg Config, logger Logger) Result {
	if logger == nil {
		logger = NoOpLogger{}
	}

	order := orderTokenIDs(input.Current)
	byID := indexTokensByID(input.Current)
	protected := protectedBackchannelTokens(input.HeuristicChanges)

	ballots := collectBallots(input.Current, input.Windows, input.Outcomes, cfg)
	for _, id := range order {
		ballots[id].resolve()
	}

	maxIter := cfg.MaxIterations
	if maxIter < 1 {
		maxIter = 1
	}

	converged := false
	iter := 0
	for ; iter < maxIter; iter++ {
		a := applyStableSpanProtection(order, input.Original, ballots, cfg)
		b := applyMinTurnDuration(order, byID, ballots, protected, cfg)
		c := applyMaxSwitchRate(order, byID, ballots, cfg)

		if !a && !b && !c {
			converged = true
			iter++
			break
		}
	}
	if !converged {
		logger.Warn("reconcile: constraint passes did not converge", "iterations", maxIter)
	}

	if moved := surviveTurnEdits(order, byID, ballots, input.Outcomes); moved > 0 {
		logger.Debug("reconcile: applied surviving turn-merge edits", "tokens_moved", moved)
	}

	var changes []token.Change
	tokens := make([]token.Token, len(input.Current))
	for i, t := range input.Current {
		b := ballots[t.ID]
		if b.winner != t.Speaker {
			changes = append(changes, token.Change{
				TokenID: t.ID, From: t.Speaker, To: b.winner,
				Stage: token.StageReconcile, Reason: b.winnerReason,
			})
			t.Speaker = b.winner
		}
		tokens[i] = t
	}

	return Result{Tokens: tokens, Changes: changes, Iterations: iter, Converged: converged}
}

// Logger is the minimal structured-logging interface Stage 2 shares with
// the rest of the pipeline.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards every log call.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{})  {}
func (NoOpLogger) Warn(string, ...interface{})  {}
func (NoOpLogger) Error(string, ...interface{}) {}
