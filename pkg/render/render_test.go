package render

import (
	"strings"
	"testing"
	"time"

	"github.com/turnmend/turnmend/pkg/token"
)

func mkTok(id token.ID, word string, startMS, endMS int64, speaker token.Speaker) token.Token {
	return token.Token{ID: id, Word: word, StartMS: startMS, EndMS: endMS, Speaker: speaker}
}

func TestParagraphFormatsTimestampAndHeader(t *testing.T) {
	tokens := []token.Token{
		mkTok(1, "hello", 65_123, 65_400, "S0"),
		mkTok(2, "there", 65_400, 65_800, "S0"),
	}
	turn := token.Turn{ID: 0, Speaker: "S0", StartMS: 65_123, EndMS: 65_800, FirstIdx: 0, LastIdx: 1}

	got := Paragraph(turn, tokens)
	want := "[01:05.123] S0\nhello there"
	if got != want {
		t.Fatalf("Paragraph() = %q, want %q", got, want)
	}
}

func TestTextJoinsParagraphsWithBlankLine(t *testing.T) {
	tokens := []token.Token{
		mkTok(1, "hi", 0, 200, "S0"),
		mkTok(2, "bye", 1000, 1200, "S1"),
	}
	turns := []token.Turn{
		{ID: 0, Speaker: "S0", StartMS: 0, EndMS: 200, FirstIdx: 0, LastIdx: 0},
		{ID: 1, Speaker: "S1", StartMS: 1000, EndMS: 1200, FirstIdx: 1, LastIdx: 1},
	}

	got := Text(turns, tokens)
	if strings.Count(got, "\n\n") != 1 {
		t.Fatalf("expected exactly one blank-line paragraph separator, got %q", got)
	}
	if !strings.Contains(got, "[00:00.000] S0\nhi") || !strings.Contains(got, "[00:01.000] S1\nbye") {
		t.Fatalf("unexpected rendered text: %q", got)
	}
}

func TestTextNeverAltersWordStrings(t *testing.T) {
	tokens := []token.Token{mkTok(1, "Don't", 0, 200, "S0")}
	turns := []token.Turn{{ID: 0, Speaker: "S0", StartMS: 0, EndMS: 200, FirstIdx: 0, LastIdx: 0}}

	got := Text(turns, tokens)
	if !strings.Contains(got, "Don't") {
		t.Fatalf("expected word string preserved verbatim, got %q", got)
	}
}

func TestStreamPushAndDrain(t *testing.T) {
	tokens := []token.Token{
		mkTok(1, "hi", 0, 200, "S0"),
		mkTok(2, "bye", 1000, 1200, "S1"),
	}
	turns := []token.Turn{
		{ID: 0, Speaker: "S0", StartMS: 0, EndMS: 200, FirstIdx: 0, LastIdx: 0},
		{ID: 1, Speaker: "S1", StartMS: 1000, EndMS: 1200, FirstIdx: 1, LastIdx: 1},
	}

	s := NewStream(2)
	for _, turn := range turns {
		s.Push(turn, tokens)
	}
	s.Close()

	var got []string
	for p := range s.Paragraphs() {
		got = append(got, p)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(got))
	}
	if got[0] != Paragraph(turns[0], tokens) || got[1] != Paragraph(turns[1], tokens) {
		t.Fatalf("paragraphs out of order or mismatched: %+v", got)
	}
}

func TestStreamPushAfterCloseIsNoOp(t *testing.T) {
	s := NewStream(1)
	s.Close()
	s.Push(token.Turn{FirstIdx: 0, LastIdx: 0}, []token.Token{mkTok(1, "hi", 0, 200, "S0")})

	if _, ok := <-s.Paragraphs(); ok {
		t.Fatalf("expected channel closed with no paragraphs after Close")
	}
}

func TestStreamCloseUnblocksFullBufferPush(t *testing.T) {
	tokens := []token.Token{mkTok(1, "hi", 0, 200, "S0")}
	turn := token.Turn{ID: 0, Speaker: "S0", StartMS: 0, EndMS: 200, FirstIdx: 0, LastIdx: 0}

	s := NewStream(1)
	s.Push(turn, tokens) // fills the buffer

	pushed := make(chan struct{})
	go func() {
		s.Push(turn, tokens) // blocks: buffer full, nothing draining
		close(pushed)
	}()

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close deadlocked behind a Push blocked on a full buffer")
	}
	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("blocked Push was never unblocked by Close")
	}

	var got []string
	for p := range s.Paragraphs() {
		got = append(got, p)
	}
	if len(got) == 0 || len(got) > 2 {
		t.Fatalf("expected the buffered paragraph (and at most the in-flight one), got %d", len(got))
	}
}
