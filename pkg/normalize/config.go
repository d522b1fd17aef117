package normalize

// Config carries the Stage 0-relevant subset of the pipeline-wide
// configuration (see pkg/pipeline.Config, which embeds this).
type Config struct {
	WindowSizeMS   int64
	WindowStrideMS int64
	AnchorMS       int64
}

// DefaultConfig returns the defaults: 45s windows, 15s stride, 5s anchors.
func DefaultConfig() Config {
	return Config{
		WindowSizeMS:   45_000,
		WindowStrideMS: 15_000,
		AnchorMS:       5_000,
	}
}
