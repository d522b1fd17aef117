// Package reconcile implements Stage 2: overlapping Stage 1 patches are
// merged into a single label per token via weighted vote, then a sequence
// of global constraints (stable-span protection, minimum turn duration,
// maximum switch rate) is applied to a fixed point. The stage is a pure
// function of its inputs.
package reconcile

import "time"

// Config carries the reconciliation thresholds.
type Config struct {
	DefaultExplicitConfidence float64
	DefaultNullConfidence     float64

	StableSpanMinMS         int64
	StableSpanMinConfidence float64

	MinTurnDurationMS int64

	SwitchRateWindowMS   int64
	MaxSwitchesPerWindow int

	MaxIterations int
}

// DefaultConfig returns the reconciliation defaults.
func DefaultConfig() Config {
	return Config{
		DefaultExplicitConfidence: 0.7,
		DefaultNullConfidence:     0.5,
		StableSpanMinMS:           int64(6 * time.Second / time.Millisecond),
		StableSpanMinConfidence:   0.8,
		MinTurnDurationMS:         700,
		SwitchRateWindowMS:        int64(time.Second / time.Millisecond),
		MaxSwitchesPerWindow:      2,
		MaxIterations:             5,
	}
}
