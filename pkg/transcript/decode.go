// Package transcript decodes the diarizer's source document into the
// canonical token vector and encodes the pipeline's output back into the
// machine transcript shape. It is the only package that knows the wire
// format described in the input/output contract; every other stage works
// exclusively in terms of pkg/token types.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/turnmend/turnmend/pkg/token"
)

// sourceDocument mirrors the diarizer's nested response shape:
// results.channels[0].alternatives[0].words[].
type sourceDocument struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Words []sourceWord `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

type sourceWord struct {
	Word              string   `json:"word"`
	Start             float64  `json:"start"`
	End               float64  `json:"end"`
	Confidence        float64  `json:"confidence"`
	Speaker           int      `json:"speaker"`
	SpeakerConfidence *float64 `json:"speaker_confidence,omitempty"`
}

const defaultSpeakerConfidence = 0.5

// Decode reads a source document from r, assigns stable token IDs in
// document order, and returns the canonical token vector. It performs the
// fatal input-error checks from the error-handling design: malformed
// documents, out-of-order tokens, and negative durations all abort before
// any later stage runs.
func Decode(r io.Reader) ([]token.Token, error) {
	var doc sourceDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrMalformedSource, err)
	}

	if len(doc.Results.Channels) == 0 || len(doc.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("%w: no channels/alternatives present", token.ErrMalformedSource)
	}

	words := doc.Results.Channels[0].Alternatives[0].Words

	tokens := make([]token.Token, 0, len(words))
	var lastStart int64 = math.MinInt64
	for i, w := range words {
		startMS := roundMillis(w.Start)
		endMS := roundMillis(w.End)

		if endMS < startMS {
			return nil, fmt.Errorf("%w: word %d (%q) start=%dms end=%dms", token.ErrNegativeDuration, i, w.Word, startMS, endMS)
		}
		if startMS < lastStart {
			return nil, fmt.Errorf("%w: word %d (%q) starts at %dms, before preceding word's %dms", token.ErrTokensOutOfOrder, i, w.Word, startMS, lastStart)
		}
		lastStart = startMS

		speakerConf := defaultSpeakerConfidence
		if w.SpeakerConfidence != nil {
			speakerConf = *w.SpeakerConfidence
		}

		tokens = append(tokens, token.Token{
			ID:                token.ID(i + 1),
			Word:              w.Word,
			StartMS:           startMS,
			EndMS:             endMS,
			Speaker:           token.Speaker(fmt.Sprintf("S%d", w.Speaker)),
			WordConfidence:    w.Confidence,
			SpeakerConfidence: speakerConf,
		})
	}

	token.RecomputeTurns(tokens)

	return tokens, nil
}

// roundMillis converts fractional seconds to integer milliseconds using
// round-half-away-from-zero, matching round(seconds * 1000) from the input
// format contract.
func roundMillis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
