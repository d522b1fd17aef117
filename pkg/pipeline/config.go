package pipeline

import (
	"fmt"

	"github.com/turnmend/turnmend/pkg/heuristics"
	"github.com/turnmend/turnmend/pkg/localedit"
	"github.com/turnmend/turnmend/pkg/normalize"
	"github.com/turnmend/turnmend/pkg/reconcile"
	"github.com/turnmend/turnmend/pkg/token"
)

// Config is the pipeline-wide configuration; every stage's sub-config is
// embedded so a single value fully determines a run.
type Config struct {
	MaxSpeakers       int
	MaxSpeakersPolicy MaxSpeakersPolicy

	// HeuristicsOnly, when set, skips Stage 1 and Stage 2 entirely: the
	// output depends only on the deterministic heuristic pass.
	HeuristicsOnly bool

	Normalize normalize.Config
	Heuristic heuristics.Config
	Stage1    localedit.StageConfig
	Reconcile reconcile.Config
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	return Config{
		MaxSpeakers:       4,
		MaxSpeakersPolicy: PolicyMerge,
		Normalize:         normalize.DefaultConfig(),
		Heuristic:         heuristics.DefaultConfig(),
		Stage1:            localedit.DefaultStageConfig(),
		Reconcile:         reconcile.DefaultConfig(),
	}
}

// Validate checks the configuration-class invariants that must hold
// before a run starts; failures here are the one class of error the
// pipeline treats as fatal at startup rather than per-window.
func (c Config) Validate() error {
	if c.MaxSpeakers <= 0 {
		return fmt.Errorf("%w: max_speakers must be positive, got %d", token.ErrInvalidConfig, c.MaxSpeakers)
	}
	if c.MaxSpeakersPolicy != PolicyMerge && c.MaxSpeakersPolicy != PolicyReject {
		return fmt.Errorf("%w: max_speakers_policy must be %q or %q, got %q", token.ErrInvalidConfig, PolicyMerge, PolicyReject, c.MaxSpeakersPolicy)
	}
	if c.Normalize.WindowSizeMS <= 0 || c.Normalize.WindowStrideMS <= 0 {
		return fmt.Errorf("%w: window_size_ms and window_stride_ms must be positive", token.ErrInvalidConfig)
	}
	if c.Stage1.WorkerConcurrency <= 0 {
		return fmt.Errorf("%w: worker_concurrency must be positive", token.ErrInvalidConfig)
	}
	return nil
}
