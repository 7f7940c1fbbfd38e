package session

import (
	"testing"

	"github.com/smudgy/smudgy/internal/mapcache"
	"github.com/smudgy/smudgy/internal/pattern"
	"github.com/smudgy/smudgy/internal/vtparse"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := New(Profile{ID: "s1", Host: "mud.example.com", Port: 4000, PatternBackend: pattern.BackendAutomaton}, mapcache.New(nil, 8))
	return s
}

func feedLine(s *Session, text string) {
	s.curLineText = text
	s.curLineSpans = []vtparse.Span{{Text: text, Style: vtparse.DefaultStyle}}
	s.handleEvents([]vtparse.Event{{Kind: vtparse.EventLineBreak}})
}

func TestTriggerGagSuppressesAppend(t *testing.T) {
	s := newTestSession(t)
	host := s.newHost()
	if err := host.CreateSimpleTrigger("hide_spam", []string{"spam"}, nil, nil, `line.gag()`, false, true); err != nil {
		t.Fatalf("register trigger: %v", err)
	}

	before := s.buffer.Len()
	feedLine(s, "this is spam text")
	if s.buffer.Len() != before {
		t.Fatalf("expected gagged line not appended, buffer grew from %d to %d", before, s.buffer.Len())
	}
}

func TestOrdinaryLineAppendsToBuffer(t *testing.T) {
	s := newTestSession(t)
	feedLine(s, "hello world")
	snap := s.Snapshot()
	if len(snap.Lines) != 1 || snap.Lines[0].PlainText() != "hello world" {
		t.Fatalf("expected one appended line, got %+v", snap.Lines)
	}
}

// S1: "\x1b[31mRed\x1b[0m Plain\r\n" must yield two spans, a red "Red" and
// a default-styled " Plain", not one flattened default-styled run.
func TestStyledSpansSurviveToBuffer(t *testing.T) {
	s := newTestSession(t)
	parser := vtparse.New(0)
	events := parser.Feed([]byte("\x1b[31mRed\x1b[0m Plain\r\n"))
	s.handleEvents(events)

	snap := s.Snapshot()
	if len(snap.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(snap.Lines))
	}
	spans := snap.Lines[0].Spans
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}
	if spans[0].Text != "Red" || spans[0].Style.Foreground != vtparse.ANSI(1, false) {
		t.Fatalf("unexpected first span: %+v", spans[0])
	}
	if spans[1].Text != " Plain" || spans[1].Style != vtparse.DefaultStyle {
		t.Fatalf("unexpected second span: %+v", spans[1])
	}
}

// A rawPattern keyed on the SGR escape itself only matches if the raw
// (reconstructed) line, not the plain-stripped line, is passed as the
// rawPatterns target.
func TestRawPatternMatchesReconstructedEscape(t *testing.T) {
	s := newTestSession(t)
	host := s.newHost()
	if err := host.CreateSimpleTrigger("red_alert", nil, []string{`\x1b\[31m`}, nil, `session.send("saw-red")`, false, true); err != nil {
		t.Fatalf("register trigger: %v", err)
	}

	parser := vtparse.New(0)
	events := parser.Feed([]byte("\x1b[31mRed\x1b[0m Plain\r\n"))
	s.handleEvents(events)

	select {
	case line := <-s.outbound:
		if line != "saw-red" {
			t.Fatalf("got outbound %q, want saw-red", line)
		}
	default:
		t.Fatal("expected the rawPattern trigger to fire session.send(\"saw-red\")")
	}
}

func TestAliasMatchesOutboundLine(t *testing.T) {
	s := newTestSession(t)
	host := s.newHost()
	if err := host.CreateSimpleAlias("gt", []string{"^gt$"}, `session.sendRaw("go north; go north")`); err != nil {
		t.Fatalf("register alias: %v", err)
	}

	firings := s.aliases.MatchInput("gt")
	if len(firings) != 1 {
		t.Fatalf("expected alias to match, got %d firings", len(firings))
	}
}

func TestReloadClearsRegistries(t *testing.T) {
	s := newTestSession(t)
	host := s.newHost()
	host.CreateSimpleTrigger("t1", []string{"x"}, nil, nil, `line.gag()`, false, true)
	host.CreateSimpleAlias("a1", []string{"x"}, `session.send("y")`)

	s.Reload()

	if names := s.triggers.Names(); len(names) != 0 {
		t.Fatalf("expected triggers cleared after reload, got %v", names)
	}
	if names := s.aliases.Names(); len(names) != 0 {
		t.Fatalf("expected aliases cleared after reload, got %v", names)
	}
}

func TestStateTransitionsStringer(t *testing.T) {
	s := newTestSession(t)
	if s.State() != Disconnected {
		t.Fatalf("expected new session to start Disconnected, got %v", s.State())
	}
	if s.State().String() != "disconnected" {
		t.Fatalf("unexpected state string %q", s.State().String())
	}
}
