// Package normalize implements Stage 0: it assumes tokens have already been
// decoded and ID-assigned (pkg/transcript.Decode), and produces the
// problem-zone set and the overlapping window list those tokens are cut
// into for Stage 1.
package normalize

import "github.com/turnmend/turnmend/pkg/token"

// Result is Stage 0's complete output: the problem zones and the windows
// built from them, plus the precomputed token->windows index.
type Result struct {
	Zones       []Zone
	Windows     []Window
	WindowIndex map[token.ID][]int
}

// Run executes Stage 0 over an already-decoded, ID-assigned token vector.
// Tokens are not mutated or reordered.
func Run(tokens []token.Token, cfg Config) Result {
	zones := DetectZones(tokens, cfg)
	windows := BuildWindows(tokens, zones, cfg)
	return Result{
		Zones:       zones,
		Windows:     windows,
		WindowIndex: TokenWindowIndex(windows),
	}
}
