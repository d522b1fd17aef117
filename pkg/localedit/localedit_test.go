package localedit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnmend/turnmend/pkg/normalize"
	"github.com/turnmend/turnmend/pkg/token"
)

func mkTok(id token.ID, word string, startMS, endMS int64, speaker token.Speaker) token.Token {
	return token.Token{
		ID: id, Word: word, StartMS: startMS, EndMS: endMS,
		Speaker: speaker, WordConfidence: 0.9, SpeakerConfidence: 0.9,
	}
}

func TestEditBudget(t *testing.T) {
	cases := []struct {
		name  string
		count int
		pct   float64
		want  int
	}{
		{"hundred tokens three pct", 100, 3.0, 3},
		{"small window floors to one", 5, 3.0, 1},
		{"zero editable", 0, 3.0, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := editBudget(c.count, c.pct)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestBuildRequest(t *testing.T) {
	w := normalize.Window{
		ID: 7,
		Editable: []token.Token{
			mkTok(1, "hi", 0, 500, "S0"),
			mkTok(2, "there", 500, 1000, "S1"),
		},
	}
	req := BuildRequest(w, []token.Speaker{"S0", "S1"}, 3.0)

	assert.Equal(t, 7, req.WindowID)
	require.Len(t, req.Editable, 2)
	assert.Equal(t, token.ID(1), req.Editable[0].TokenID)
	assert.Equal(t, 1, req.EditBudget)
}

// TestValidateEditBudgetRejection exercises the edit-budget check:
// a 100-token window with a budget of 3 relabels rejects a 10-relabel patch.
func TestValidateEditBudgetRejection(t *testing.T) {
	var editable []TokenView
	for i := 0; i < 100; i++ {
		editable = append(editable, TokenView{TokenID: token.ID(i), Speaker: "S0", Word: "w"})
	}
	req := Request{
		WindowID:        1,
		AllowedSpeakers: []token.Speaker{"S0", "S1"},
		Editable:        editable,
		EditBudget:      3,
	}

	var relabels []Relabel
	for i := 0; i < 10; i++ {
		relabels = append(relabels, Relabel{TokenID: token.ID(i), NewSpeaker: "S1", Reason: token.ReasonLexicalContinuity})
	}
	patch := Patch{WindowID: 1, Relabels: relabels}

	err := Validate(req, patch, DefaultValidationConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edit budget")
}

func TestValidateRejectsDisallowedSpeaker(t *testing.T) {
	req := Request{
		WindowID:        1,
		AllowedSpeakers: []token.Speaker{"S0", "S1"},
		Editable:        []TokenView{{TokenID: 1, Speaker: "S0"}},
		EditBudget:      2,
	}
	patch := Patch{Relabels: []Relabel{{TokenID: 1, NewSpeaker: "S9", Reason: token.ReasonLexicalContinuity}}}

	err := Validate(req, patch, DefaultValidationConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disallowed speaker")
}

func TestValidateRejectsUnknownReasonCode(t *testing.T) {
	req := Request{
		AllowedSpeakers: []token.Speaker{"S0", "S1"},
		Editable:        []TokenView{{TokenID: 1, Speaker: "S0"}},
		EditBudget:      2,
	}
	patch := Patch{Relabels: []Relabel{{TokenID: 1, NewSpeaker: "S1", Reason: "made_up"}}}

	err := Validate(req, patch, DefaultValidationConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reason code")
}

func TestValidateRejectsSelfReportedViolation(t *testing.T) {
	req := Request{
		AllowedSpeakers: []token.Speaker{"S0"},
		Editable:        []TokenView{{TokenID: 1, Speaker: "S0"}},
		EditBudget:      1,
	}
	patch := Patch{Violations: []string{"changed a word"}}

	err := Validate(req, patch, DefaultValidationConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self-reports")
}

func TestValidateAcceptsCleanPatch(t *testing.T) {
	req := Request{
		AllowedSpeakers: []token.Speaker{"S0", "S1"},
		Editable: []TokenView{
			{TokenID: 1, Speaker: "S0", Word: "hi", StartMS: 0, EndMS: 100, TurnID: 0},
			{TokenID: 2, Speaker: "S0", Word: "there", StartMS: 100, EndMS: 200, TurnID: 0},
		},
		EditBudget: 1,
	}
	patch := Patch{Relabels: []Relabel{{TokenID: 2, NewSpeaker: "S1", Reason: token.ReasonLexicalContinuity}}}

	err := Validate(req, patch, ValidationConfig{CostDeltaThresholdPerToken: 100})
	assert.NoError(t, err)
}

func TestCostDeltaZeroForEmptyPatch(t *testing.T) {
	views := []TokenView{
		{TokenID: 1, Speaker: "S0", Word: "a"},
		{TokenID: 2, Speaker: "S0", Word: "b"},
	}
	assert.Equal(t, 0.0, costDelta(views, nil))
}

func TestCostDeltaPenalizesNewSwitch(t *testing.T) {
	views := []TokenView{
		{TokenID: 1, Speaker: "S0", Word: "a", StartMS: 0, EndMS: 1000},
		{TokenID: 2, Speaker: "S0", Word: "b", StartMS: 1000, EndMS: 2000},
	}
	relabels := []Relabel{{TokenID: 2, NewSpeaker: "S1"}}
	delta := costDelta(views, relabels)
	assert.Greater(t, delta, 0.0)
}

func TestRunSkipsNonProblemZoneWindows(t *testing.T) {
	windows := []normalize.Window{
		{ID: 0, IsProblemZone: false, Editable: []token.Token{mkTok(1, "a", 0, 100, "S0")}},
		{ID: 1, IsProblemZone: true, Editable: []token.Token{mkTok(2, "b", 100, 200, "S0")}},
	}
	editor := NewMockEditor()
	editor.SetPatch(1, Patch{})

	outcomes := Run(context.Background(), windows, []token.Speaker{"S0"}, editor, DefaultStageConfig(), nil)

	require.Len(t, outcomes, 1)
	assert.Equal(t, 1, outcomes[0].WindowID)
	assert.True(t, outcomes[0].Accepted)
}

func TestRunRejectsInvalidPatch(t *testing.T) {
	windows := []normalize.Window{
		{ID: 0, IsProblemZone: true, Editable: []token.Token{mkTok(1, "a", 0, 100, "S0")}},
	}
	editor := NewMockEditor()
	editor.SetPatch(0, Patch{Relabels: []Relabel{{TokenID: 999, NewSpeaker: "S0", Reason: token.ReasonLexicalContinuity}}})

	outcomes := Run(context.Background(), windows, []token.Speaker{"S0"}, editor, DefaultStageConfig(), nil)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Accepted)
	assert.Contains(t, outcomes[0].RejectReason, "outside the window")
}

func TestRunRetriesTransportErrorThenSucceeds(t *testing.T) {
	windows := []normalize.Window{
		{ID: 0, IsProblemZone: true, Editable: []token.Token{mkTok(1, "a", 0, 100, "S0")}},
	}
	editor := &flakyEditor{failuresRemaining: 2}

	cfg := DefaultStageConfig()
	cfg.RequestTimeout = time.Second
	cfg.MaxTransportRetries = 3

	outcomes := Run(context.Background(), windows, []token.Speaker{"S0"}, editor, cfg, nil)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Accepted)
	assert.Equal(t, 3, editor.calls)
}

func TestRunGivesUpAfterExhaustingRetries(t *testing.T) {
	windows := []normalize.Window{
		{ID: 0, IsProblemZone: true, Editable: []token.Token{mkTok(1, "a", 0, 100, "S0")}},
	}
	editor := &flakyEditor{failuresRemaining: 99}

	cfg := DefaultStageConfig()
	cfg.MaxTransportRetries = 2
	cfg.RequestTimeout = time.Second

	outcomes := Run(context.Background(), windows, []token.Speaker{"S0"}, editor, cfg, nil)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Accepted)
	assert.Equal(t, 2, editor.calls)
}

func TestRunRespectsCancellation(t *testing.T) {
	windows := []normalize.Window{
		{ID: 0, IsProblemZone: true, Editable: []token.Token{mkTok(1, "a", 0, 100, "S0")}},
	}
	editor := NewMockEditor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := Run(ctx, windows, []token.Speaker{"S0"}, editor, DefaultStageConfig(), nil)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Accepted)
	assert.Equal(t, "cancelled", outcomes[0].RejectReason)
}

// flakyEditor fails transport N times before succeeding, to exercise
// callWithRetry's backoff path without a real network dependency.
type flakyEditor struct {
	failuresRemaining int
	calls             int
}

func (f *flakyEditor) Edit(ctx context.Context, req Request) (Patch, error) {
	f.calls++
	if f.failuresRemaining > 0 {
		f.failuresRemaining--
		return Patch{}, errors.New("simulated transport failure")
	}
	return Patch{WindowID: req.WindowID}, nil
}

func (f *flakyEditor) Name() string { return "flaky-editor" }

func TestHTTPEditorRoundTrip(t *testing.T) {
	want := Patch{
		WindowID: 3,
		Relabels: []Relabel{{TokenID: 7, NewSpeaker: "S1", Reason: token.ReasonOverlapBoundary, Confidence: 0.8}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model string  `json:"model"`
			Rules string  `json:"rules"`
			Input Request `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "editor-v1", body.Model)
		assert.NotEmpty(t, body.Rules)
		assert.Equal(t, 3, body.Input.WindowID)

		require.NoError(t, json.NewEncoder(w).Encode(want))
	}))
	defer srv.Close()

	editor := NewHTTPEditor("test-key", srv.URL, "editor-v1")
	got, err := editor.Edit(context.Background(), Request{WindowID: 3})
	require.NoError(t, err)
	assert.Equal(t, want.WindowID, got.WindowID)
	require.Len(t, got.Relabels, 1)
	assert.Equal(t, token.ID(7), got.Relabels[0].TokenID)
}

func TestHTTPEditorSurfacesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	editor := NewHTTPEditor("test-key", srv.URL, "editor-v1")
	_, err := editor.Edit(context.Background(), Request{WindowID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
