package localedit

import (
	"fmt"

	"github.com/turnmend/turnmend/pkg/token"
)

// ValidationConfig carries the thresholds patch validation checks against.
type ValidationConfig struct {
	// CostDeltaThresholdPerToken is the maximum allowed per-token-average
	// cost delta; the threshold is relative to window size, not absolute.
	CostDeltaThresholdPerToken float64
}

// DefaultValidationConfig returns a permissive-but-bounded default
// threshold; callers tune it via pipeline configuration.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{CostDeltaThresholdPerToken: 1.5}
}

// Validate runs the acceptance checks against a patch and the request it
// answers. A non-nil error means the window's contribution to
// reconciliation is zero: the window is treated as unchanged.
func Validate(req Request, patch Patch, cfg ValidationConfig) error {
	editableByID := make(map[token.ID]TokenView, len(req.Editable))
	for _, v := range req.Editable {
		editableByID[v.TokenID] = v
	}

	allowed := make(map[token.Speaker]bool, len(req.AllowedSpeakers))
	for _, s := range req.AllowedSpeakers {
		allowed[s] = true
	}

	// Check 1 & 2: every relabeled token is editable, every new speaker is
	// allowed.
	for _, r := range patch.Relabels {
		if _, ok := editableByID[r.TokenID]; !ok {
			return fmt.Errorf("relabel references token %d outside the window's editable set", r.TokenID)
		}
		if !allowed[r.NewSpeaker] {
			return fmt.Errorf("relabel proposes disallowed speaker %q", r.NewSpeaker)
		}
		if !r.Reason.Valid() {
			return fmt.Errorf("relabel for token %d carries invalid reason code %q", r.TokenID, r.Reason)
		}
	}

	// Check 3: edit budget.
	if len(patch.Relabels) > req.EditBudget {
		return fmt.Errorf("patch proposes %d relabels, exceeding edit budget %d", len(patch.Relabels), req.EditBudget)
	}

	// Check 4: Relabel carries no word or timestamp field, so there is
	// nothing in the schema a patch could use to rewrite either.

	// Check 5: self-reported violations must be empty.
	if len(patch.Violations) > 0 {
		return fmt.Errorf("patch self-reports %d violation(s): %v", len(patch.Violations), patch.Violations)
	}

	// Check 7: turn edits reference only tokens/turns within the window.
	turnIDs := make(map[int]bool)
	for _, v := range req.Editable {
		turnIDs[v.TurnID] = true
	}
	for _, e := range patch.TurnEdits {
		switch e.Kind {
		case TurnEditSplit:
			if _, ok := editableByID[e.SplitAtToken]; !ok {
				return fmt.Errorf("turn split references token %d outside the window", e.SplitAtToken)
			}
		case TurnEditMerge:
			if !turnIDs[e.TurnA] || !turnIDs[e.TurnB] {
				return fmt.Errorf("turn merge references turn IDs (%d,%d) outside the window", e.TurnA, e.TurnB)
			}
		default:
			return fmt.Errorf("turn edit carries unknown kind %q", e.Kind)
		}
	}

	// Check 6: cost delta threshold.
	delta := costDelta(req.Editable, patch.Relabels)
	if delta > cfg.CostDeltaThresholdPerToken {
		return fmt.Errorf("patch cost delta %.4f exceeds per-token threshold %.4f", delta, cfg.CostDeltaThresholdPerToken)
	}

	return nil
}
