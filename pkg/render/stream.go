package render

import (
	"sync"

	"github.com/turnmend/turnmend/pkg/token"
)

// Stream renders turns incrementally as they become available: a
// buffered channel the caller drains with Paragraphs(), fed by Push calls
// and torn down with Close.
type Stream struct {
	paragraphs chan string
	done       chan struct{}

	mu      sync.Mutex
	closed  bool
	pushers sync.WaitGroup
}

// NewStream creates a Stream with a channel buffer sized for buffer
// pending paragraphs; a caller producing turns faster than it drains
// Paragraphs() blocks on Push once the buffer fills.
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{
		paragraphs: make(chan string, buffer),
		done:       make(chan struct{}),
	}
}

// Push renders turn and enqueues it, blocking while the buffer is full.
// Push is a no-op after Close; a Close during a blocked Push unblocks it
// and drops the paragraph. The lock is never held across the send, so
// Close cannot be starved by a full buffer.
func (s *Stream) Push(turn token.Turn, tokens []token.Token) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pushers.Add(1)
	s.mu.Unlock()
	defer s.pushers.Done()

	select {
	case s.paragraphs <- Paragraph(turn, tokens):
	case <-s.done:
	}
}

// Paragraphs returns the channel of rendered paragraphs, one per Push,
// in push order. It is closed once Close is called and every buffered
// paragraph has been drained.
func (s *Stream) Paragraphs() <-chan string {
	return s.paragraphs
}

// Close signals that no further turns will be pushed, unblocks any Push
// waiting on a full buffer, and closes the paragraph channel once every
// in-flight Push has returned. It is safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.pushers.Wait()
	close(s.paragraphs)
}
