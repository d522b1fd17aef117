package token

import "errors"

var (
	// ErrTokensOutOfOrder is a fatal input error: the source document did
	// not present tokens in non-decreasing start-time order within a channel.
	ErrTokensOutOfOrder = errors.New("tokens out of order")

	// ErrNegativeDuration is a fatal input error: a token's end time
	// precedes its start time.
	ErrNegativeDuration = errors.New("token has negative duration")

	// ErrMalformedSource is a fatal input error: the source document does
	// not match the expected shape.
	ErrMalformedSource = errors.New("malformed source document")

	// ErrInvalidConfig is a fatal configuration error, raised at startup.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrTooManySpeakers is raised when max_speakers_policy is "reject"
	// and a distinct speaker label beyond the configured cap appears.
	ErrTooManySpeakers = errors.New("distinct speaker count exceeds max_speakers")
)
