package heuristics

// Config carries the Stage H-relevant subset of the pipeline-wide
// configuration (see pkg/pipeline.Config, which embeds this).
type Config struct {
	MicroTurnMS int64

	// BackchannelWords is the closed set of single-token acknowledgements
	// eligible for floor-aware reattribution. Overridable in configuration.
	BackchannelWords map[string]bool

	// FloorWindowMS is the sliding window over which per-speaker floor
	// score is accumulated (default: 5s).
	FloorWindowMS int64
}

// DefaultBackchannelWords is the default closed acknowledgement set.
func DefaultBackchannelWords() map[string]bool {
	return map[string]bool{
		"yeah":   true,
		"mhm":    true,
		"right":  true,
		"okay":   true,
		"uh-huh": true,
		"yes":    true,
		"no":     true,
	}
}

// DefaultConfig returns the defaults: 300ms micro-turns, 5s floor window.
func DefaultConfig() Config {
	return Config{
		MicroTurnMS:      300,
		BackchannelWords: DefaultBackchannelWords(),
		FloorWindowMS:    5_000,
	}
}
