package localedit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPEditor talks to an external model over a single JSON
// request/response exchange: marshal the request body, POST it, decode a
// structured patch out of the response.
type HTTPEditor struct {
	apiKey string
	url    string
	model  string
	client *http.Client
}

// NewHTTPEditor creates an HTTPEditor posting to url with the given API key
// and model name. Requests are sent through http.DefaultClient.
func NewHTTPEditor(apiKey, url, model string) *HTTPEditor {
	return &HTTPEditor{
		apiKey: apiKey,
		url:    url,
		model:  model,
		client: http.DefaultClient,
	}
}

type httpEditorRequestBody struct {
	Model string  `json:"model"`
	Rules string  `json:"rules"`
	Input Request `json:"input"`
}

// editorRules is the fixed rule text sent with every request: no word/timestamp changes,
// edit-budget and reason-code constraints, self-report obligation.
const editorRules = "Do not change any word or timestamp. " +
	"Propose at most the given edit_budget relabels. " +
	"Every relabel must carry a reason code from the closed enum " +
	"(jitter_short_turn, overlap_boundary, lexical_continuity, dialogue_pairing, " +
	"backchannel_attribution, do_not_change). " +
	"Self-report any rule violation in the violations field."

func (e *HTTPEditor) Edit(ctx context.Context, req Request) (Patch, error) {
	body := httpEditorRequestBody{Model: e.model, Rules: editorRules, Input: req}

	payload, err := json.Marshal(body)
	if err != nil {
		return Patch{}, fmt.Errorf("marshal local-edit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return Patch{}, fmt.Errorf("build local-edit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Patch{}, fmt.Errorf("local-edit transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Patch{}, fmt.Errorf("local-edit error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var patch Patch
	if err := json.NewDecoder(resp.Body).Decode(&patch); err != nil {
		return Patch{}, fmt.Errorf("decode local-edit patch: %w", err)
	}

	return patch, nil
}

func (e *HTTPEditor) Name() string {
	return "http-editor"
}
