// Package localedit implements Stage 1: for each problem-zone window, a
// request is sent to an external language model and the returned patch is
// validated before being handed to Stage 2. The core only depends on the
// Editor interface below — concrete transports (HTTP, WebSocket) are
// narrow adapters around it.
package localedit

import (
	"context"

	"github.com/turnmend/turnmend/pkg/token"
)

// TokenView is the read-only projection of a token sent to the external
// model: everything it needs to propose a relabel, nothing it is allowed
// to change.
type TokenView struct {
	TokenID           token.ID      `json:"token_id"`
	Word              string        `json:"word"`
	StartMS           int64         `json:"start_ms"`
	EndMS             int64         `json:"end_ms"`
	Speaker           token.Speaker `json:"speaker"`
	SpeakerConfidence float64       `json:"speaker_confidence"`
	Overlap           bool          `json:"overlap"`
	TurnID            int           `json:"turn_id"`
}

// Request is the complete request for one window's local edit.
type Request struct {
	WindowID int `json:"window_id"`

	AllowedSpeakers []token.Speaker `json:"allowed_speakers"`

	Editable     []TokenView `json:"editable"`
	AnchorPrefix []TokenView `json:"anchor_prefix"`
	AnchorSuffix []TokenView `json:"anchor_suffix"`

	// EditBudget is the maximum number of relabels this window's patch may
	// contain: ceil(edit_budget_pct / 100 * len(Editable)), minimum 1.
	EditBudget int `json:"edit_budget"`
}

// Relabel is one proposed token relabel.
type Relabel struct {
	TokenID    token.ID         `json:"token_id"`
	NewSpeaker token.Speaker    `json:"new_speaker"`
	Reason     token.ReasonCode `json:"reason"`

	// Confidence is the model's self-reported confidence in this relabel,
	// in [0,1]. Zero means "not reported"; Stage 2 substitutes the
	// configured default when aggregating votes.
	Confidence float64 `json:"confidence"`
}

// TurnEditKind distinguishes the two turn-edit operations a patch may
// propose.
type TurnEditKind string

const (
	TurnEditSplit TurnEditKind = "split"
	TurnEditMerge TurnEditKind = "merge"
)

// TurnEdit is a proposed split (at a token) or merge (with a neighboring
// turn).
type TurnEdit struct {
	Kind TurnEditKind `json:"kind"`

	// SplitAtToken is set for TurnEditSplit: the token at which a new turn
	// begins.
	SplitAtToken token.ID `json:"split_at_token,omitempty"`

	// TurnA/TurnB are set for TurnEditMerge: the IDs of the two adjacent
	// turns to merge, as carried in the request's TokenView.TurnID (turns
	// are numbered across the whole stream, not per window).
	TurnA int `json:"turn_a,omitempty"`
	TurnB int `json:"turn_b,omitempty"`
}

// Patch is the complete response to one Request.
type Patch struct {
	// ID is the patch's run-scoped unique identifier. An external editor
	// may supply its own; if left blank, Stage 1 assigns one (see
	// stage.go) once the patch is accepted.
	ID string `json:"id,omitempty"`

	WindowID int `json:"window_id"`

	Relabels  []Relabel  `json:"relabels"`
	TurnEdits []TurnEdit `json:"turn_edits"`

	// Violations is the model's own self-report of rule violations it
	// believes it committed. A non-empty list invalidates the patch.
	Violations []string `json:"violations"`

	Notes string `json:"notes"`
}

// Editor is the narrow interface the core depends on: a pure function from
// a window request to a patch, with an optional error. Concrete transports
// (HTTP JSON completion, WebSocket streaming) live in this package as
// Editor implementations; any authentication or prompt templating is their
// concern, not the core's.
type Editor interface {
	Edit(ctx context.Context, req Request) (Patch, error)
	Name() string
}
