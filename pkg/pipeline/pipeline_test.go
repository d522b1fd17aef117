package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/turnmend/turnmend/pkg/localedit"
	"github.com/turnmend/turnmend/pkg/token"
	"github.com/turnmend/turnmend/pkg/transcript"
)

func mkTok(id token.ID, word string, startMS, endMS int64, speaker token.Speaker) token.Token {
	return token.Token{
		ID: id, Word: word, StartMS: startMS, EndMS: endMS,
		Speaker: speaker, WordConfidence: 0.9, SpeakerConfidence: 0.9,
	}
}

func TestRunHeuristicsOnlySkipsStage1(t *testing.T) {
	tokens := []token.Token{
		mkTok(1, "a", 0, 1000, "S0"),
		mkTok(2, "b", 1000, 2000, "S1"),
	}

	cfg := DefaultConfig()
	cfg.HeuristicsOnly = true

	result, diag, err := Run(context.Background(), tokens, nil, cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diag.ReconcileConverged {
		t.Fatalf("expected heuristics-only run to report converged")
	}
	if len(result.Tokens) != 2 {
		t.Fatalf("expected 2 tokens in result, got %d", len(result.Tokens))
	}
}

func TestRunEndToEndWithMockEditor(t *testing.T) {
	var tokens []token.Token
	for i := 0; i < 80; i++ {
		speaker := token.Speaker("S0")
		if i%20 >= 10 {
			speaker = "S1"
		}
		start := int64(i) * 500
		tokens = append(tokens, mkTok(token.ID(i+1), "word", start, start+500, speaker))
	}
	// Inject an isolated overlap-adjacent problem zone so at least one
	// window is flagged for Stage 1.
	tokens[5].Overlap = true

	editor := localedit.NewMockEditor()

	result, diag, err := Run(context.Background(), tokens, editor, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Tokens) != len(tokens) {
		t.Fatalf("expected every token preserved, got %d want %d", len(result.Tokens), len(tokens))
	}
	for i, tok := range result.Tokens {
		if tok.Word != tokens[i].Word || tok.StartMS != tokens[i].StartMS || tok.EndMS != tokens[i].EndMS {
			t.Fatalf("token %d word/timestamps mutated: got %+v want word=%q start=%d end=%d", i, tok, tokens[i].Word, tokens[i].StartMS, tokens[i].EndMS)
		}
	}
	_ = diag
}

func TestRunRejectsTooManySpeakersUnderRejectPolicy(t *testing.T) {
	tokens := []token.Token{
		mkTok(1, "a", 0, 500, "S0"),
		mkTok(2, "b", 500, 1000, "S1"),
		mkTok(3, "c", 1000, 1500, "S2"),
		mkTok(4, "d", 1500, 2000, "S3"),
		mkTok(5, "e", 2000, 2500, "S4"),
	}

	cfg := DefaultConfig()
	cfg.MaxSpeakers = 4
	cfg.MaxSpeakersPolicy = PolicyReject
	cfg.HeuristicsOnly = true

	_, _, err := Run(context.Background(), tokens, nil, cfg, nil)
	if err == nil {
		t.Fatalf("expected an error from the reject policy with 5 distinct speakers")
	}
}

func TestRunMergesExcessSpeakers(t *testing.T) {
	tokens := []token.Token{
		mkTok(1, "a", 0, 500, "S0"),
		mkTok(2, "b", 500, 1000, "S1"),
		mkTok(3, "c", 1000, 1500, "S2"),
		mkTok(4, "d", 1500, 2000, "S3"),
		mkTok(5, "e", 2000, 2500, "S4"),
	}

	cfg := DefaultConfig()
	cfg.MaxSpeakers = 4
	cfg.MaxSpeakersPolicy = PolicyMerge
	cfg.HeuristicsOnly = true

	result, diag, err := Run(context.Background(), tokens, nil, cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diag.SpeakerMerges == 0 {
		t.Fatalf("expected at least one speaker-merge diagnostic")
	}
	for _, tok := range result.Tokens {
		if tok.Speaker == "S4" {
			t.Fatalf("expected S4 merged away, still present: %+v", tok)
		}
	}
}

func TestRunAppliesAcceptedRelabelToOutput(t *testing.T) {
	var tokens []token.Token
	for i := 0; i < 80; i++ {
		speaker := token.Speaker("S0")
		if i%20 >= 10 {
			speaker = "S1"
		}
		start := int64(i) * 500
		tokens = append(tokens, mkTok(token.ID(i+1), "word", start, start+500, speaker))
	}
	tokens[10].Overlap = true // flags a problem zone around the S0/S1 boundary

	editor := localedit.NewMockEditor()
	editor.SetPatch(0, localedit.Patch{
		Relabels: []localedit.Relabel{
			{TokenID: 11, NewSpeaker: "S0", Reason: token.ReasonJitterShortTurn, Confidence: 0.9},
		},
	})

	result, _, err := Run(context.Background(), tokens, editor, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got token.Speaker
	for _, tok := range result.Tokens {
		if tok.ID == 11 {
			got = tok.Speaker
		}
	}
	if got != "S0" {
		t.Fatalf("expected accepted relabel visible in output, token 11 is %q", got)
	}

	found := false
	for _, c := range result.Changes {
		if c.TokenID == 11 && c.To == "S0" && c.Stage == token.StageReconcile {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a reconcile change record for token 11, got %+v", result.Changes)
	}
}

func TestRunRequiresEditorUnlessHeuristicsOnly(t *testing.T) {
	tokens := []token.Token{mkTok(1, "a", 0, 500, "S0")}
	_, _, err := Run(context.Background(), tokens, nil, DefaultConfig(), nil)
	if err == nil {
		t.Fatal("expected an error when no editor is supplied")
	}
}

// Two runs over the same input with identical mock responses must encode
// to byte-identical machine documents.
func TestRunIsDeterministic(t *testing.T) {
	build := func() []token.Token {
		var tokens []token.Token
		for i := 0; i < 60; i++ {
			speaker := token.Speaker("S0")
			if i%6 >= 3 {
				speaker = "S1"
			}
			start := int64(i) * 400
			tokens = append(tokens, token.Token{
				ID: token.ID(i + 1), Word: "word", StartMS: start, EndMS: start + 400,
				Speaker: speaker, WordConfidence: 0.9, SpeakerConfidence: 0.55,
			})
		}
		return tokens
	}

	run := func() []byte {
		editor := localedit.NewMockEditor()
		editor.SetPatch(0, localedit.Patch{
			Relabels: []localedit.Relabel{
				{TokenID: 4, NewSpeaker: "S0", Reason: token.ReasonJitterShortTurn, Confidence: 0.9},
			},
		})
		result, _, err := Run(context.Background(), build(), editor, DefaultConfig(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		doc := transcript.Encode(result.Tokens, result.Turns, result.Changes)
		var buf bytes.Buffer
		if err := transcript.Write(&buf, doc); err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		return buf.Bytes()
	}

	first := run()
	second := run()
	if !bytes.Equal(first, second) {
		t.Fatalf("expected byte-identical output across runs")
	}
}

// A single-token input comes back unchanged with an empty change list,
// even though its sub-800ms turn flags a problem window.
func TestRunIdentitySingleToken(t *testing.T) {
	tokens := []token.Token{{
		ID: 1, Word: "hello", StartMS: 500, EndMS: 800,
		Speaker: "S0", WordConfidence: 0.95, SpeakerConfidence: 0.95,
	}}

	result, _, err := Run(context.Background(), tokens, localedit.NewMockEditor(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Tokens) != 1 || result.Tokens[0].Speaker != "S0" {
		t.Fatalf("expected the token back with speaker S0, got %+v", result.Tokens)
	}
	if len(result.Changes) != 0 {
		t.Fatalf("expected no changes, got %+v", result.Changes)
	}
}
