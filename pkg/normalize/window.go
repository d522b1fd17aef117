package normalize

import "github.com/turnmend/turnmend/pkg/token"

// Window is a time-bounded slice of the token stream used by Stage 1. Editable
// holds the tokens whose start time falls inside [StartMS, EndMS); AnchorPrefix
// and AnchorSuffix are read-only context drawn from the margin outside it.
type Window struct {
	ID int

	StartMS int64
	EndMS   int64

	Editable     []token.Token
	AnchorPrefix []token.Token
	AnchorSuffix []token.Token

	IsProblemZone bool
}

// BuildWindows cuts tokens into overlapping windows per cfg, starting at the
// first token's start time and striding forward until every token is
// covered. Windows are returned in start-time order.
func BuildWindows(tokens []token.Token, zones []Zone, cfg Config) []Window {
	if len(tokens) == 0 {
		return nil
	}

	var windows []Window
	firstStart := tokens[0].StartMS
	lastEnd := tokens[len(tokens)-1].EndMS

	id := 0
	for winStart := firstStart; winStart <= lastEnd; winStart += cfg.WindowStrideMS {
		winEnd := winStart + cfg.WindowSizeMS

		w := Window{
			ID:      id,
			StartMS: winStart,
			EndMS:   winEnd,
		}

		for _, t := range tokens {
			switch {
			case t.StartMS >= winStart && t.StartMS < winEnd:
				w.Editable = append(w.Editable, t)
			case t.EndMS >= winStart-cfg.AnchorMS && t.EndMS < winStart:
				w.AnchorPrefix = append(w.AnchorPrefix, t)
			case t.StartMS > winEnd && t.StartMS <= winEnd+cfg.AnchorMS:
				w.AnchorSuffix = append(w.AnchorSuffix, t)
			}
		}

		if len(w.Editable) > 0 {
			w.IsProblemZone = windowIntersectsZone(w, zones)
			windows = append(windows, w)
			id++
		}
	}

	return windows
}

func windowIntersectsZone(w Window, zones []Zone) bool {
	if len(w.Editable) == 0 {
		return false
	}
	editStart := w.Editable[0].StartMS
	editEnd := w.Editable[len(w.Editable)-1].EndMS
	return Intersects(zones, editStart, editEnd)
}

// TokenWindowIndex maps each editable token ID to the IDs of every window
// that includes it, precomputed once at window-construction time.
func TokenWindowIndex(windows []Window) map[token.ID][]int {
	index := make(map[token.ID][]int)
	for _, w := range windows {
		for _, t := range w.Editable {
			index[t.ID] = append(index[t.ID], w.ID)
		}
	}
	return index
}
