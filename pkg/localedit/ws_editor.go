package localedit

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WSEditor talks to an external model over a persistent WebSocket
// connection: one JSON text message per request, one JSON text message per
// response. The connection is reused across windows and re-dialed lazily
// on first use or after a failure.
type WSEditor struct {
	apiKey string
	host   string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSEditor creates a WSEditor dialing wss://host/ws?api_key=... on
// first use.
func NewWSEditor(apiKey, host string) *WSEditor {
	return &WSEditor{apiKey: apiKey, host: host}
}

func (e *WSEditor) getConn(ctx context.Context) (*websocket.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn != nil {
		return e.conn, nil
	}

	u := url.URL{Scheme: "wss", Host: e.host, Path: "/ws", RawQuery: "api_key=" + e.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial local-edit websocket: %w", err)
	}

	e.conn = conn
	return conn, nil
}

type wsEditorEnvelope struct {
	Rules string  `json:"rules"`
	Input Request `json:"input"`
}

func (e *WSEditor) Edit(ctx context.Context, req Request) (Patch, error) {
	conn, err := e.getConn(ctx)
	if err != nil {
		return Patch{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := wsjson.Write(ctx, conn, wsEditorEnvelope{Rules: editorRules, Input: req}); err != nil {
		e.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write request")
		return Patch{}, fmt.Errorf("send local-edit request: %w", err)
	}

	var patch Patch
	if err := wsjson.Read(ctx, conn, &patch); err != nil {
		e.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to read response")
		return Patch{}, fmt.Errorf("read local-edit response: %w", err)
	}

	return patch, nil
}

func (e *WSEditor) Name() string {
	return "ws-editor"
}

// Close releases the underlying connection, if any.
func (e *WSEditor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		err := e.conn.Close(websocket.StatusNormalClosure, "")
		e.conn = nil
		return err
	}
	return nil
}
