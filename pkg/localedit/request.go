package localedit

import (
	"math"

	"github.com/turnmend/turnmend/pkg/normalize"
	"github.com/turnmend/turnmend/pkg/token"
)

const defaultEditBudgetPct = 3.0

// BuildRequest turns a normalize.Window into the request sent to the
// external model, computing the edit budget: editBudgetPct percent of
// editable tokens (3% when editBudgetPct is not positive), rounded up,
// minimum 1.
func BuildRequest(w normalize.Window, allowedSpeakers []token.Speaker, editBudgetPct float64) Request {
	if editBudgetPct <= 0 {
		editBudgetPct = defaultEditBudgetPct
	}

	return Request{
		WindowID:        w.ID,
		AllowedSpeakers: allowedSpeakers,
		Editable:        toViews(w.Editable),
		AnchorPrefix:    toViews(w.AnchorPrefix),
		AnchorSuffix:    toViews(w.AnchorSuffix),
		EditBudget:      editBudget(len(w.Editable), editBudgetPct),
	}
}

func editBudget(editableCount int, editBudgetPct float64) int {
	budget := int(math.Ceil(float64(editableCount) * editBudgetPct / 100.0))
	if budget < 1 {
		budget = 1
	}
	return budget
}

func toViews(tokens []token.Token) []TokenView {
	views := make([]TokenView, len(tokens))
	for i, t := range tokens {
		views[i] = TokenView{
			TokenID:           t.ID,
			Word:              t.Word,
			StartMS:           t.StartMS,
			EndMS:             t.EndMS,
			Speaker:           t.Speaker,
			SpeakerConfidence: t.SpeakerConfidence,
			Overlap:           t.Overlap,
			TurnID:            t.TurnID,
		}
	}
	return views
}
