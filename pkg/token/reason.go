package token

// ReasonCode is a closed enum of justifications a local-edit patch may
// attach to a relabel. Any value outside this set invalidates the patch
// that carries it.
type ReasonCode string

const (
	ReasonJitterShortTurn        ReasonCode = "jitter_short_turn"
	ReasonOverlapBoundary        ReasonCode = "overlap_boundary"
	ReasonLexicalContinuity      ReasonCode = "lexical_continuity"
	ReasonDialoguePairing        ReasonCode = "dialogue_pairing"
	ReasonBackchannelAttribution ReasonCode = "backchannel_attribution"
	ReasonDoNotChange            ReasonCode = "do_not_change"
)

var validReasonCodes = map[ReasonCode]bool{
	ReasonJitterShortTurn:        true,
	ReasonOverlapBoundary:        true,
	ReasonLexicalContinuity:      true,
	ReasonDialoguePairing:        true,
	ReasonBackchannelAttribution: true,
	ReasonDoNotChange:            true,
}

// Valid reports whether r is a member of the closed reason-code enum.
func (r ReasonCode) Valid() bool {
	return validReasonCodes[r]
}

// ChangeStage identifies which pipeline stage produced a label change.
type ChangeStage string

const (
	StageHeuristics ChangeStage = "heuristics"
	StageReconcile  ChangeStage = "reconcile"
)

// Change records one label revision applied to a single token, carried
// alongside the final output so callers can audit what moved and why.
type Change struct {
	TokenID ID
	From    Speaker
	To      Speaker
	Stage   ChangeStage
	Reason  ReasonCode
}
