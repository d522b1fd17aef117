package localedit

import (
	"context"
	"sync"
)

// MockEditor is an in-process Editor for tests: it returns a
// caller-supplied patch (or error) per window ID, falling back to an empty
// "no change" patch for windows it wasn't configured for.
type MockEditor struct {
	mu       sync.Mutex
	patches  map[int]Patch
	errs     map[int]error
	requests []Request
}

// NewMockEditor creates an empty MockEditor.
func NewMockEditor() *MockEditor {
	return &MockEditor{
		patches: make(map[int]Patch),
		errs:    make(map[int]error),
	}
}

// SetPatch configures the patch returned for a given window ID.
func (m *MockEditor) SetPatch(windowID int, patch Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	patch.WindowID = windowID
	m.patches[windowID] = patch
}

// SetError configures an error returned for a given window ID, simulating
// a transport failure.
func (m *MockEditor) SetError(windowID int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[windowID] = err
}

// Requests returns every request Edit was called with, in call order.
func (m *MockEditor) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *MockEditor) Edit(ctx context.Context, req Request) (Patch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if err, ok := m.errs[req.WindowID]; ok {
		return Patch{}, err
	}
	if patch, ok := m.patches[req.WindowID]; ok {
		return patch, nil
	}
	return Patch{WindowID: req.WindowID}, nil
}

func (m *MockEditor) Name() string {
	return "mock-editor"
}
