package transcript

import (
	"encoding/json"
	"io"

	"github.com/turnmend/turnmend/pkg/token"
)

// MachineToken is the wire shape of one output token.
type MachineToken struct {
	ID                token.ID      `json:"id"`
	Word              string        `json:"word"`
	StartMS           int64         `json:"start_ms"`
	EndMS             int64         `json:"end_ms"`
	Speaker           token.Speaker `json:"speaker"`
	WordConfidence    float64       `json:"word_confidence"`
	SpeakerConfidence float64       `json:"speaker_confidence"`
	TurnID            int           `json:"turn_id"`
}

// MachineTurn is the wire shape of one output turn.
type MachineTurn struct {
	TurnID    int           `json:"turn_id"`
	Speaker   token.Speaker `json:"speaker"`
	StartMS   int64         `json:"start_ms"`
	EndMS     int64         `json:"end_ms"`
	WordCount int           `json:"word_count"`
}

// MachineChange is the wire shape of one recorded label change.
type MachineChange struct {
	TokenID token.ID          `json:"token_id"`
	From    token.Speaker     `json:"from"`
	To      token.Speaker     `json:"to"`
	Stage   token.ChangeStage `json:"stage"`
	Reason  token.ReasonCode  `json:"reason"`
}

// MachineDocument is the complete machine-readable output: the relabeled
// token stream, the turns derived from it, and every change that was made.
type MachineDocument struct {
	Tokens  []MachineToken  `json:"tokens"`
	Turns   []MachineTurn   `json:"turns"`
	Changes []MachineChange `json:"changes"`
}

// Encode builds the machine document from a final token stream, its
// derived turns, and the accumulated change log.
func Encode(tokens []token.Token, turns []token.Turn, changes []token.Change) MachineDocument {
	doc := MachineDocument{
		Tokens:  make([]MachineToken, len(tokens)),
		Turns:   make([]MachineTurn, len(turns)),
		Changes: make([]MachineChange, len(changes)),
	}

	for i, t := range tokens {
		doc.Tokens[i] = MachineToken{
			ID:                t.ID,
			Word:              t.Word,
			StartMS:           t.StartMS,
			EndMS:             t.EndMS,
			Speaker:           t.Speaker,
			WordConfidence:    t.WordConfidence,
			SpeakerConfidence: t.SpeakerConfidence,
			TurnID:            t.TurnID,
		}
	}

	for i, tn := range turns {
		doc.Turns[i] = MachineTurn{
			TurnID:    tn.ID,
			Speaker:   tn.Speaker,
			StartMS:   tn.StartMS,
			EndMS:     tn.EndMS,
			WordCount: tn.TokenCount(),
		}
	}

	for i, c := range changes {
		doc.Changes[i] = MachineChange{
			TokenID: c.TokenID,
			From:    c.From,
			To:      c.To,
			Stage:   c.Stage,
			Reason:  c.Reason,
		}
	}

	return doc
}

// Write serializes the machine document as JSON to w.
func Write(w io.Writer, doc MachineDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
