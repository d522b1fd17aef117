// Package naming implements the optional post-Stage-3 speaker-naming
// pass: rewriting opaque labels like "S1" to human-supplied names. The
// core pipeline never calls this; a caller opts in explicitly.
package naming

import (
	"fmt"
	"strings"

	"github.com/turnmend/turnmend/pkg/token"
)

// SpeakerNamer supplies a human-readable name for an opaque speaker
// label, given the final turn list as context (so an implementation can,
// for example, match against known voice prints or a roster keyed by
// speaking order). Returning ok=false leaves the label unchanged.
type SpeakerNamer interface {
	Name(speaker token.Speaker, turns []token.Turn) (name string, ok bool)
}

// StaticNamer is a SpeakerNamer backed by a fixed, caller-supplied
// mapping, the simplest case: names known ahead of time (e.g. from
// meeting metadata) rather than derived from the transcript itself.
type StaticNamer map[token.Speaker]string

func (m StaticNamer) Name(speaker token.Speaker, _ []token.Turn) (string, bool) {
	name, ok := m[speaker]
	return name, ok
}

// ParseStaticNamer builds a StaticNamer from a "S0=Alice,S1=Bob"-shaped
// string, the format the CLI accepts for its -speaker-names flag.
func ParseStaticNamer(spec string) (StaticNamer, error) {
	namer := make(StaticNamer)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("naming: malformed speaker-name entry %q, want SPEAKER=Name", pair)
		}
		namer[token.Speaker(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return namer, nil
}

// Rename rewrites every token and turn's Speaker field using namer,
// returning a copy; labels namer doesn't recognize are left untouched.
func Rename(tokens []token.Token, turns []token.Turn, namer SpeakerNamer) ([]token.Token, []token.Turn) {
	outTokens := append([]token.Token(nil), tokens...)
	outTurns := append([]token.Turn(nil), turns...)

	resolved := make(map[token.Speaker]token.Speaker)
	resolve := func(s token.Speaker) token.Speaker {
		if r, ok := resolved[s]; ok {
			return r
		}
		if name, ok := namer.Name(s, turns); ok {
			resolved[s] = token.Speaker(name)
			return resolved[s]
		}
		resolved[s] = s
		return s
	}

	for i := range outTokens {
		outTokens[i].Speaker = resolve(outTokens[i].Speaker)
	}
	for i := range outTurns {
		outTurns[i].Speaker = resolve(outTurns[i].Speaker)
	}

	return outTokens, outTurns
}
