// Package pipeline wires Stages 0 through 3 into the single entry point a
// caller (the CLI, a batch job, a service handler) actually invokes.
package pipeline

import (
	"context"
	"fmt"

	"github.com/turnmend/turnmend/pkg/assemble"
	"github.com/turnmend/turnmend/pkg/heuristics"
	"github.com/turnmend/turnmend/pkg/localedit"
	"github.com/turnmend/turnmend/pkg/normalize"
	"github.com/turnmend/turnmend/pkg/reconcile"
	"github.com/turnmend/turnmend/pkg/token"
)

// Logger is the structured-logging interface every stage shares.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards every log call; it is the default when a caller
// does not supply one.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{})  {}
func (NoOpLogger) Warn(string, ...interface{})  {}
func (NoOpLogger) Error(string, ...interface{}) {}

// Run executes the full pipeline over tokens, which must already be
// decoded and ID-assigned (pkg/transcript.Decode does both). editor may be
// nil only when cfg.HeuristicsOnly is set, since it is otherwise required
// for Stage 1.
func Run(ctx context.Context, tokens []token.Token, editor localedit.Editor, cfg Config, logger Logger) (assemble.Result, Diagnostics, error) {
	if logger == nil {
		logger = NoOpLogger{}
	}
	if err := cfg.Validate(); err != nil {
		return assemble.Result{}, Diagnostics{}, err
	}
	if editor == nil && !cfg.HeuristicsOnly {
		return assemble.Result{}, Diagnostics{}, fmt.Errorf("%w: an editor is required unless heuristics_only is set", token.ErrInvalidConfig)
	}

	var diag Diagnostics

	clamped, allowedSpeakers, clampChanges, err := clampSpeakers(tokens, cfg.MaxSpeakers, cfg.MaxSpeakersPolicy)
	if err != nil {
		return assemble.Result{}, Diagnostics{}, err
	}
	diag.SpeakerMerges = len(clampChanges)
	if len(clampChanges) > 0 {
		logger.Warn("pipeline: clamped excess speakers", "count", len(clampChanges), "allowed", allowedSpeakers)
	}

	original := append([]token.Token(nil), clamped...)
	token.RecomputeTurns(original)

	heuristicTokens, _, heuristicChanges := heuristics.Run(clamped, cfg.Heuristic)
	heuristicChanges = append(clampChanges, heuristicChanges...)

	if cfg.HeuristicsOnly {
		result := assemble.Run(heuristicTokens, heuristicChanges, nil)
		diag.ReconcileConverged = true
		return result, diag, nil
	}

	// Windows and problem zones are cut from the heuristic-adjusted stream:
	// by the time Stage 1 runs, the "current speaker" it reports to the
	// external model must already reflect Stage H's relabels. Original
	// (pre-heuristic) labels are kept only for Stage 2's stable-span test.
	normResult := normalize.Run(heuristicTokens, cfg.Normalize)

	outcomes := localedit.Run(ctx, normResult.Windows, allowedSpeakers, editor, cfg.Stage1, logger)
	for _, o := range outcomes {
		if !o.Accepted {
			diag.RejectedWindows = append(diag.RejectedWindows, RejectedWindow{WindowID: o.WindowID, Reason: o.RejectReason})
		}
	}

	reconcileResult := reconcile.Run(reconcile.Input{
		Original:         original,
		Current:          heuristicTokens,
		HeuristicChanges: heuristicChanges,
		Windows:          normResult.Windows,
		Outcomes:         outcomes,
	}, cfg.Reconcile, logger)

	diag.ReconcileConverged = reconcileResult.Converged
	diag.ReconcileIterations = reconcileResult.Iterations
	if !reconcileResult.Converged {
		logger.Warn("pipeline: reconcile constraints did not converge within the iteration cap")
	}

	result := assemble.Run(reconcileResult.Tokens, heuristicChanges, reconcileResult.Changes)
	return result, diag, nil
}
