package localedit

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turnmend/turnmend/pkg/normalize"
	"github.com/turnmend/turnmend/pkg/token"
)

// Logger is the minimal structured-logging interface the pipeline's stages
// share; a no-op implementation is used when the caller doesn't supply one.
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

// StageConfig carries the Stage 1-relevant subset of the pipeline-wide
// configuration.
type StageConfig struct {
	EditBudgetPct       float64
	WorkerConcurrency   int
	RequestTimeout      time.Duration
	MaxTransportRetries int
	Validation          ValidationConfig
}

// DefaultStageConfig returns the defaults: 4 workers, 60s per-window
// timeout, 3% edit budget.
func DefaultStageConfig() StageConfig {
	return StageConfig{
		EditBudgetPct:       3.0,
		WorkerConcurrency:   4,
		RequestTimeout:      60 * time.Second,
		MaxTransportRetries: 3,
		Validation:          DefaultValidationConfig(),
	}
}

// Outcome is one window's Stage 1 result: either an accepted patch, or a
// rejection reason recorded as a diagnostic.
type Outcome struct {
	WindowID     int
	Request      Request
	Patch        Patch
	Accepted     bool
	RejectReason string

	// CostDeltaFraction is the accepted patch's cost delta as a fraction of
	// the configured threshold (0 = no cost at all, 1 = right at the
	// threshold). Reconciliation uses it to discount a window's vote
	// authority: a patch that barely cleared validation carries less
	// weight than one with cost delta near zero.
	CostDeltaFraction float64
}

// Run dispatches every problem-zone window in windows to editor through a
// bounded worker pool, validates each returned patch, and returns outcomes
// sorted by window ID so reconciliation is deterministic regardless of
// completion order. Windows that are not flagged as problem zones are
// skipped entirely: Stage 1 never runs on them.
//
// A run-wide cancellation (ctx.Done) stops dispatching new requests; any
// window without an accepted patch at that point is reported as a
// rejection with reason "cancelled", and the pipeline still produces valid
// output from what was accepted so far.
func Run(ctx context.Context, windows []normalize.Window, allowedSpeakers []token.Speaker, editor Editor, cfg StageConfig, logger Logger) []Outcome {
	if logger == nil {
		logger = NoOpLogger{}
	}

	var problemWindows []normalize.Window
	for _, w := range windows {
		if w.IsProblemZone {
			problemWindows = append(problemWindows, w)
		}
	}

	outcomes := make([]Outcome, len(problemWindows))

	concurrency := cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for i, w := range problemWindows {
		i, w := i, w
		eg.Go(func() error {
			outcomes[i] = runOne(egCtx, w, allowedSpeakers, editor, cfg, logger)
			return nil
		})
	}
	// Run never returns an error from its goroutines (editor failures are
	// recorded as per-window outcomes, not propagated), so Wait only
	// blocks until every dispatched window has finished or the run was
	// cancelled.
	_ = eg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].WindowID < outcomes[j].WindowID })
	return outcomes
}

func runOne(ctx context.Context, w normalize.Window, allowedSpeakers []token.Speaker, editor Editor, cfg StageConfig, logger Logger) Outcome {
	req := BuildRequest(w, allowedSpeakers, cfg.EditBudgetPct)

	if ctx.Err() != nil {
		return Outcome{WindowID: w.ID, Request: req, RejectReason: "cancelled"}
	}

	patch, err := callWithRetry(ctx, editor, req, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{WindowID: w.ID, Request: req, RejectReason: "cancelled"}
		}
		logger.Warn("stage1: window skipped", "window_id", w.ID, "error", err)
		return Outcome{WindowID: w.ID, Request: req, RejectReason: err.Error()}
	}

	if err := Validate(req, patch, cfg.Validation); err != nil {
		logger.Warn("stage1: patch rejected", "window_id", w.ID, "error", err)
		return Outcome{WindowID: w.ID, Request: req, Patch: patch, RejectReason: err.Error()}
	}

	// Assign a run-scoped patch ID if the editor's response didn't already
	// carry a deterministic one of its own.
	if patch.ID == "" {
		patch.ID = uuid.NewString()
	}

	fraction := 0.0
	if cfg.Validation.CostDeltaThresholdPerToken > 0 {
		fraction = costDelta(req.Editable, patch.Relabels) / cfg.Validation.CostDeltaThresholdPerToken
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
	}

	return Outcome{WindowID: w.ID, Request: req, Patch: patch, Accepted: true, CostDeltaFraction: fraction}
}

// callWithRetry retries transport errors (network failures, timeouts,
// non-OK responses) with exponential backoff up to cfg.MaxTransportRetries
// attempts. A response that fails to decode as a patch (a JSON syntax or
// type error) is a schema failure and is returned without a retry.
// Validation failures are not editor errors at all — they are returned to
// the caller as a successful call whose patch then fails Validate — so they
// are never retried either.
func callWithRetry(ctx context.Context, editor Editor, req Request, cfg StageConfig) (Patch, error) {
	var lastErr error
	attempts := cfg.MaxTransportRetries
	if attempts < 1 {
		attempts = 1
	}

	backoff := 250 * time.Millisecond
	for attempt := 0; attempt < attempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		patch, err := editor.Edit(reqCtx, req)
		cancel()

		if err == nil {
			return patch, nil
		}
		lastErr = err

		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return Patch{}, err
		}

		if errors.Is(ctx.Err(), context.Canceled) {
			return Patch{}, ctx.Err()
		}

		if attempt < attempts-1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Patch{}, ctx.Err()
			}
			backoff *= 2
		}
	}
	return Patch{}, lastErr
}
