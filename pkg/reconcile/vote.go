package reconcile

import (
	"math"
	"sort"

	"github.com/turnmend/turnmend/pkg/localedit"
	"github.com/turnmend/turnmend/pkg/normalize"
	"github.com/turnmend/turnmend/pkg/token"
)

// candidate is one vote for a token's label.
type candidate struct {
	speaker token.Speaker
	weight  float64
	reason  token.ReasonCode
}

// ballot is the full set of candidates collected for a single token, plus
// bookkeeping needed by the later constraint passes.
type ballot struct {
	tokenID         token.ID
	current         token.Speaker // the label this token carried going into Stage 2
	candidates      []candidate
	winner          token.Speaker
	winnerWeight    float64
	winnerReason    token.ReasonCode
	windowVotes     map[token.Speaker]int // distinct windows that explicitly proposed each non-null speaker
	reasonBySpeaker map[token.Speaker]token.ReasonCode
}

// collectBallots builds one ballot per token in current, populated with
// every vote an accepted Stage 1 outcome cast for it.
func collectBallots(current []token.Token, windows []normalize.Window, outcomes []localedit.Outcome, cfg Config) map[token.ID]*ballot {
	ballots := make(map[token.ID]*ballot, len(current))
	for _, t := range current {
		ballots[t.ID] = &ballot{
			tokenID:         t.ID,
			current:         t.Speaker,
			windowVotes:     make(map[token.Speaker]int),
			reasonBySpeaker: make(map[token.Speaker]token.ReasonCode),
		}
	}

	windowByID := make(map[int]normalize.Window, len(windows))
	for _, w := range windows {
		windowByID[w.ID] = w
	}

	sorted := make([]localedit.Outcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].WindowID < sorted[j].WindowID })

	for _, o := range sorted {
		if !o.Accepted {
			continue
		}
		w, ok := windowByID[o.WindowID]
		if !ok {
			continue
		}

		quality := windowQuality(o.CostDeltaFraction)

		relabelByToken := make(map[token.ID]localedit.Relabel, len(o.Patch.Relabels))
		for _, r := range o.Patch.Relabels {
			relabelByToken[r.TokenID] = r
		}

		for _, v := range o.Request.Editable {
			b, ok := ballots[v.TokenID]
			if !ok {
				continue
			}

			prox := proximity(v.StartMS, w.StartMS, w.EndMS)

			if r, relabeled := relabelByToken[v.TokenID]; relabeled {
				conf := r.Confidence
				if conf <= 0 {
					conf = cfg.DefaultExplicitConfidence
				}
				b.candidates = append(b.candidates, candidate{speaker: r.NewSpeaker, weight: conf * quality * prox, reason: r.Reason})
				b.reasonBySpeaker[r.NewSpeaker] = r.Reason
				if r.NewSpeaker != v.Speaker {
					b.windowVotes[r.NewSpeaker]++
				}
			} else {
				b.candidates = append(b.candidates, candidate{speaker: v.Speaker, weight: cfg.DefaultNullConfidence * quality * prox})
			}
		}
	}

	return ballots
}

// windowQuality implements 1 − rejected_cost_delta_fraction, clamped to
// [0.3, 1.0].
func windowQuality(costDeltaFraction float64) float64 {
	q := 1 - costDeltaFraction
	if q < 0.3 {
		q = 0.3
	}
	if q > 1.0 {
		q = 1.0
	}
	return q
}

// proximity is the triangular vote weight: 1 at the window's
// midpoint, tapering linearly to 0.3 at either boundary.
func proximity(tokenStartMS, windowStartMS, windowEndMS int64) float64 {
	half := float64(windowEndMS-windowStartMS) / 2
	if half <= 0 {
		return 1.0
	}
	mid := float64(windowStartMS+windowEndMS) / 2
	frac := math.Abs(float64(tokenStartMS)-mid) / half
	if frac > 1 {
		frac = 1
	}
	return 1.0 - 0.7*frac
}

// resolve picks the argmax-weight speaker for a ballot, breaking ties
// toward the current (pre-Stage-1) label.
func (b *ballot) resolve() {
	if len(b.candidates) == 0 {
		b.winner = b.current
		b.winnerWeight = 0
		return
	}

	totals := make(map[token.Speaker]float64)
	for _, c := range b.candidates {
		totals[c.speaker] += c.weight
	}
	if _, ok := totals[b.current]; !ok {
		totals[b.current] = 0
	}

	var speakers []token.Speaker
	for s := range totals {
		speakers = append(speakers, s)
	}
	sort.Slice(speakers, func(i, j int) bool { return speakers[i] < speakers[j] })

	best := b.current
	bestWeight := totals[b.current]
	for _, s := range speakers {
		w := totals[s]
		if w > bestWeight {
			best, bestWeight = s, w
		}
	}

	b.winner = best
	b.winnerWeight = bestWeight
	if reason, ok := b.reasonBySpeaker[best]; ok {
		b.winnerReason = reason
	} else {
		b.winnerReason = token.ReasonDoNotChange
	}
}
