package scriptvm

import (
	"testing"
	"time"

	"github.com/smudgy/smudgy/internal/pattern"
	"github.com/smudgy/smudgy/internal/trigger"
	"github.com/smudgy/smudgy/internal/vtparse"
)

type fakeHost struct {
	sent    []string
	gagged  bool
	highlightBegin, highlightEnd int
	highlightStyle vtparse.Style
}

func (f *fakeHost) SessionSend(line string)                                 { f.sent = append(f.sent, line) }
func (f *fakeHost) SessionSendRaw(line string)                              { f.sent = append(f.sent, line) }
func (f *fakeHost) SessionEcho(line string)                                 {}
func (f *fakeHost) SessionReload()                                          {}
func (f *fakeHost) SetAliasEnabled(name string, enabled bool)               {}
func (f *fakeHost) SetTriggerEnabled(name string, enabled bool)             {}
func (f *fakeHost) CreateSimpleAlias(name string, patterns []string, body string) error { return nil }
func (f *fakeHost) CreateFnAlias(name string, patterns []string, handle string) error   { return nil }
func (f *fakeHost) CreateSimpleTrigger(name string, p, rp, ap []string, body string, fop, en bool) error {
	return nil
}
func (f *fakeHost) CreateFnTrigger(name string, p, rp, ap []string, handle string, fop, en bool) error {
	return nil
}
func (f *fakeHost) GetCurrentLine() string      { return "" }
func (f *fakeHost) GetCurrentLineNumber() int64 { return 0 }
func (f *fakeHost) LineInsert(pos int, text string, style vtparse.Style)  {}
func (f *fakeHost) LineReplace(begin, end int, text string)               {}
func (f *fakeHost) LineHighlight(begin, end int, style vtparse.Style) {
	f.highlightBegin, f.highlightEnd, f.highlightStyle = begin, end, style
}
func (f *fakeHost) LineRemove(begin, end int) {}
func (f *fakeHost) LineGag()                  { f.gagged = true }
func (f *fakeHost) BufferInsert(ln int64, pos int, text string, style vtparse.Style) error { return nil }
func (f *fakeHost) BufferReplace(ln int64, begin, end int, text string) error              { return nil }
func (f *fakeHost) BufferHighlight(ln int64, begin, end int, style vtparse.Style) error    { return nil }
func (f *fakeHost) BufferRemove(ln int64, begin, end int) error                            { return nil }
func (f *fakeHost) ListAreaIDs() []MapEntityRef                        { return nil }
func (f *fakeHost) GetAreaName(ref MapEntityRef) (string, bool)        { return "", false }
func (f *fakeHost) RenameArea(ref MapEntityRef, name string)           {}
func (f *fakeHost) GetRoomTitle(ref MapEntityRef) (string, bool)       { return "", false }
func (f *fakeHost) SetRoomField(ref MapEntityRef, field, value string) {}
func (f *fakeHost) SetRoomProperty(ref MapEntityRef, key, value string) {}
func (f *fakeHost) SetAreaProperty(ref MapEntityRef, key, value string) {}
func (f *fakeHost) CreateRoom(ref MapEntityRef, title string)          {}
func (f *fakeHost) DeleteRoom(ref MapEntityRef)                        {}
func (f *fakeHost) SetCurrentLocation(ref MapEntityRef)                {}
func (f *fakeHost) SearchRooms(title, description string) []MapEntityRef { return nil }
func (f *fakeHost) GetCurrentSession() string       { return "s1" }
func (f *fakeHost) GetSessions() []string           { return []string{"s1"} }
func (f *fakeHost) GetSessionCharacter(s string) string { return "" }

func fire(name, source string, groups []string, named map[string]string) trigger.Firing {
	return trigger.Firing{
		Name: name,
		Body: trigger.SimpleBody(source),
		Matches: []pattern.Match{{Name: name, Groups: groups, Named: named}},
	}
}

// S2: trigger captures $1 and sends "kick <target>".
func TestScenarioS2SendWithCapture(t *testing.T) {
	host := &fakeHost{}
	exec := NewExecutor(500*time.Millisecond, nil)
	f := fire("t1", `send("kick " + $1)`, []string{"You hit orc for 12 damage.", "orc", "12"}, nil)

	if err := exec.RunBody("s1", f, 5, host); err != nil {
		t.Fatalf("unexpected script error: %v", err)
	}
	if len(host.sent) != 1 || host.sent[0] != "kick orc" {
		t.Fatalf("got sent=%v, want [kick orc]", host.sent)
	}
}

// S3: gag body sets the gag flag.
func TestScenarioS3GagBody(t *testing.T) {
	host := &fakeHost{}
	exec := NewExecutor(500*time.Millisecond, nil)
	f := fire("t2", `line.gag()`, []string{"spam"}, nil)

	if err := exec.RunBody("s1", f, 5, host); err != nil {
		t.Fatalf("unexpected script error: %v", err)
	}
	if !host.gagged {
		t.Fatal("expected line to be gagged")
	}
}

// S4: highlight body with an object-literal style argument.
func TestScenarioS4HighlightBody(t *testing.T) {
	host := &fakeHost{}
	exec := NewExecutor(500*time.Millisecond, nil)
	f := fire("t3", `line.highlightAt(2, 10, {fg:"red"})`, []string{"critical"}, nil)

	if err := exec.RunBody("s1", f, 5, host); err != nil {
		t.Fatalf("unexpected script error: %v", err)
	}
	if host.highlightBegin != 2 || host.highlightEnd != 10 {
		t.Fatalf("got begin=%d end=%d", host.highlightBegin, host.highlightEnd)
	}
	if host.highlightStyle.Foreground != vtparse.ANSI(1, false) {
		t.Fatalf("got foreground %v, want red", host.highlightStyle.Foreground)
	}
}

// S5: a multi-send alias body runs both sends in order.
func TestScenarioS5MultiSend(t *testing.T) {
	host := &fakeHost{}
	exec := NewExecutor(500*time.Millisecond, nil)
	f := fire("a1", `send("kick " + $1); send("smile " + $1)`, []string{"k orc", "orc"}, nil)

	if err := exec.RunBody("s1", f, 0, host); err != nil {
		t.Fatalf("unexpected script error: %v", err)
	}
	want := []string{"kick orc", "smile orc"}
	if len(host.sent) != 2 || host.sent[0] != want[0] || host.sent[1] != want[1] {
		t.Fatalf("got %v, want %v", host.sent, want)
	}
}

func TestUnknownHostOperationIsAScriptError(t *testing.T) {
	host := &fakeHost{}
	exec := NewExecutor(500*time.Millisecond, nil)
	f := fire("bad", `teleport("nowhere")`, nil, nil)

	err := exec.RunBody("s1", f, 1, host)
	if err == nil {
		t.Fatal("expected a ScriptError")
	}
	if err.Name != "bad" || err.Timeout {
		t.Fatalf("unexpected error shape: %+v", err)
	}
}

func TestWallClockBudgetIsolatesSlowBody(t *testing.T) {
	host := &fakeHost{}
	callables := NewCallableRegistry()
	handle := callables.Register(func(captures []string, host Host) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	exec := NewExecutor(5*time.Millisecond, callables)
	f := trigger.Firing{Name: "slow", Body: trigger.FnBody(handle), Matches: []pattern.Match{{Groups: []string{"x"}}}}

	err := exec.RunBody("s1", f, 1, host)
	if err == nil || !err.Timeout {
		t.Fatalf("expected a timeout ScriptError, got %v", err)
	}
}

// A malformed call (too few args for trigger.setEnabled) reaches a bare
// index expression and panics; RunBody must convert that into a
// *ScriptError rather than crash the daemon.
func TestMalformedBodyPanicIsIsolated(t *testing.T) {
	host := &fakeHost{}
	exec := NewExecutor(500*time.Millisecond, nil)
	f := fire("bad", `trigger.setEnabled("x")`, nil, nil)

	err := exec.RunBody("s1", f, 1, host)
	if err == nil {
		t.Fatal("expected a ScriptError from the panicking body")
	}
	if err.Timeout {
		t.Fatalf("expected a non-timeout error, got %+v", err)
	}
}

func TestFnBodyInvokesCallable(t *testing.T) {
	host := &fakeHost{}
	callables := NewCallableRegistry()
	handle := callables.Register(func(captures []string, host Host) error {
		host.SessionSend("from-callable:" + captures[0])
		return nil
	})
	exec := NewExecutor(500*time.Millisecond, callables)
	f := trigger.Firing{Name: "fn", Body: trigger.FnBody(handle), Matches: []pattern.Match{{Groups: []string{"hello"}}}}

	if err := exec.RunBody("s1", f, 1, host); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.sent) != 1 || host.sent[0] != "from-callable:hello" {
		t.Fatalf("got %v", host.sent)
	}
}
