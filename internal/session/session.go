// Package session implements the Session Orchestrator (spec.md §4.7):
// the state machine and inbound/outbound loops that own one connection's
// parser, scrollback, registries, and script executor for its lifetime.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/smudgy/smudgy/internal/editqueue"
	"github.com/smudgy/smudgy/internal/logger"
	"github.com/smudgy/smudgy/internal/mapcache"
	"github.com/smudgy/smudgy/internal/pattern"
	"github.com/smudgy/smudgy/internal/scriptvm"
	"github.com/smudgy/smudgy/internal/scrollback"
	"github.com/smudgy/smudgy/internal/telnet"
	"github.com/smudgy/smudgy/internal/trigger"
	"github.com/smudgy/smudgy/internal/uifeed"
	"github.com/smudgy/smudgy/internal/vtparse"
)

// State is a Session's lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Profile is the resolved, ready-to-run configuration for one session,
// corresponding to SPEC_FULL.md's SessionProfile type.
type Profile struct {
	ID             string
	Host           string
	Port           int
	Character      string
	StartupScripts []string
	ScrollbackSize int
	PromptIdleMs   int
	ScriptBudgetMs int
	PatternBackend pattern.Backend
}

// Session owns one connection's parser, buffer, registries, and executor
// for its lifetime. All of its exported methods are safe to call from
// other goroutines (the control transport, the UI feed) except where noted;
// internally the inbound/outbound loops run on their own goroutines and
// touch the registries/executor without additional locking, since scripts
// only ever run synchronously from one of those two loops.
type Session struct {
	Profile Profile

	mu    sync.RWMutex
	state State

	conn   net.Conn
	cancel context.CancelFunc

	telnetFilter *telnet.Filter
	parser       *vtparse.Parser
	buffer       *scrollback.Buffer
	triggers     *trigger.TriggerRegistry
	aliases      *trigger.AliasRegistry
	executor     *scriptvm.Executor
	callables    *scriptvm.CallableRegistry
	mapCache     *mapcache.Cache

	// curLineMu guards the three fields below. They are written by the
	// inbound loop and read by Host methods (GetCurrentLine, etc.) that a
	// trigger/alias body's goroutine can still be calling after its budget
	// has expired and RunBody has already returned — see the hazard note
	// on scriptvm.Executor.RunBody.
	curLineMu    sync.Mutex
	curLineText  string
	curLineSpans []vtparse.Span
	curLineNum   int64

	editQueue *editqueue.Queue

	// Manager, if set, lets this session's scripts see other sessions
	// (get_sessions, get_session_character). Nil in single-session tests.
	Manager *Manager

	// Hub, if set, publishes scrollback events for this session to the UI
	// Event Feed. Nil in single-session tests.
	Hub *uifeed.Hub

	outbound chan string

	log *slog.Logger
}

// New constructs a Session in the Disconnected state, ready to Connect.
func New(profile Profile, mapCache *mapcache.Cache) *Session {
	if profile.ScrollbackSize <= 0 {
		profile.ScrollbackSize = 10000
	}
	if profile.PromptIdleMs <= 0 {
		profile.PromptIdleMs = 250
	}
	if profile.ScriptBudgetMs <= 0 {
		profile.ScriptBudgetMs = 500
	}

	s := &Session{
		Profile:   profile,
		state:     Disconnected,
		parser:    vtparse.New(time.Duration(profile.PromptIdleMs) * time.Millisecond),
		buffer:    scrollback.NewBuffer(profile.ScrollbackSize),
		triggers:  trigger.NewTriggerRegistry(profile.PatternBackend),
		aliases:   trigger.NewAliasRegistry(profile.PatternBackend),
		callables: scriptvm.NewCallableRegistry(),
		mapCache:  mapCache,
		editQueue: &editqueue.Queue{},
		outbound:  make(chan string, 64),
		log:       logger.Session(profile.ID),
	}
	s.executor = scriptvm.NewExecutor(time.Duration(profile.ScriptBudgetMs)*time.Millisecond, s.callables)
	return s
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Connect dials the remote host and, on success, starts the inbound and
// outbound loops. It blocks until the loops exit (connection closed, fatal
// error, or ctx cancellation), matching the orchestrator's "drives two
// loops cooperatively" description — callers that want non-blocking
// behavior should invoke Connect from their own goroutine.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(Connecting)

	addr := fmt.Sprintf("%s:%d", s.Profile.Host, s.Profile.Port)
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.setState(Disconnected)
		return fmt.Errorf("session: dial %s: %w", addr, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	s.telnetFilter = &telnet.Filter{}
	s.parser = vtparse.New(time.Duration(s.Profile.PromptIdleMs) * time.Millisecond)
	s.curLineMu.Lock()
	s.curLineText, s.curLineSpans = "", nil
	s.curLineMu.Unlock()
	s.editQueue.Drain()
	s.setState(Connected)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); defer cancel(); s.inboundLoop(runCtx) }()
	go func() { defer wg.Done(); s.outboundLoop(runCtx) }()
	wg.Wait()

	s.setState(Disconnecting)
	conn.Close()
	s.setState(Disconnected)
	return nil
}

// Disconnect triggers a local close, moving the session toward
// Disconnecting/Disconnected once the loops observe it.
func (s *Session) Disconnect() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// inboundLoop implements spec.md §4.7's inbound pipeline: bytes → telnet
// filter → VT parser → (per line/prompt) triggers → executor → edit queue
// → buffer append (unless gagged).
func (s *Session) inboundLoop(ctx context.Context) {
	reader := bufio.NewReaderSize(s.conn, 4096)
	buf := make([]byte, 4096)
	idleTicker := time.NewTicker(50 * time.Millisecond)
	defer idleTicker.Stop()

	readCh := make(chan []byte)
	errCh := make(chan error, 1)
	go func() {
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				readCh <- chunk
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != io.EOF {
				s.log.Warn("inbound read error", "error", err)
			}
			return
		case chunk := <-readCh:
			clean, prompts, responses := s.telnetFilter.Feed(chunk)
			if len(responses) > 0 {
				s.conn.Write(responses)
			}
			events := s.parser.Feed(clean)
			for _, sig := range prompts {
				events = append(events, s.parser.InjectTelnetPrompt(telnetPromptSource(sig))...)
			}
			s.handleEvents(events)
		case now := <-idleTicker.C:
			s.handleEvents(s.parser.PromptIdleCheck(now))
		}
	}
}

func (s *Session) handleEvents(events []vtparse.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case vtparse.EventText:
			s.curLineMu.Lock()
			s.curLineText += ev.Span.Text
			s.curLineSpans = append(s.curLineSpans, ev.Span)
			s.curLineMu.Unlock()
		case vtparse.EventSetStyle:
			// The parser flushes a run as an EventText before every style
			// change, so the new style is already carried on the next
			// Span rather than needing separate tracking here.
		case vtparse.EventLineBreak, vtparse.EventPromptFlush:
			onPrompt := ev.Kind == vtparse.EventPromptFlush
			s.finalizeLine(onPrompt)
		}
	}
}

func (s *Session) finalizeLine(onPrompt bool) {
	lineNum := s.buffer.NextLineNumber()

	s.curLineMu.Lock()
	s.curLineNum = lineNum
	plainText := s.curLineText
	spans := s.curLineSpans
	s.curLineText = ""
	s.curLineSpans = nil
	s.curLineMu.Unlock()

	rawText := vtparse.RenderSGR(spans)
	firings := s.triggers.MatchLine(plainText, rawText, onPrompt)
	host := s.newHost()
	for _, f := range firings {
		if scriptErr := s.executor.RunBody(s.Profile.ID, f, lineNum, host); scriptErr != nil {
			s.log.Error("trigger body failed", "trigger", f.Name, "line", lineNum, "error", scriptErr.Err, "timeout", scriptErr.Timeout)
		}
	}

	edits := s.editQueue.Drain()
	kind := scrollback.KindLine
	if onPrompt {
		kind = scrollback.KindPrompt
	}
	line := scrollback.StyledLine{
		Number: lineNum,
		Kind:   kind,
		Spans:  spans,
	}
	result, gagged, err := scrollback.ApplyEdits(line, edits)
	if err != nil {
		s.log.Error("line edit application failed", "line", lineNum, "error", err)
	}
	if gagged {
		if s.Hub != nil {
			s.Hub.PublishScrollbackGag(s.Profile.ID, lineNum)
		}
	} else {
		s.buffer.Append(result)
		if s.Hub != nil {
			kindStr := "line"
			if onPrompt {
				kindStr = "prompt"
			}
			s.Hub.PublishScrollbackAppend(s.Profile.ID, lineNum, kindStr, result.PlainText())
		}
	}
}

// currentLineNumber reads curLineNum under curLineMu, since the outbound
// loop runs on its own goroutine concurrently with the inbound loop's
// writes to it.
func (s *Session) currentLineNumber() int64 {
	s.curLineMu.Lock()
	defer s.curLineMu.Unlock()
	return s.curLineNum
}

// outboundLoop implements spec.md §4.7's outbound pipeline: user line →
// alias matching → (match: run bodies, typically send) or (no match: raw
// line to transport).
func (s *Session) outboundLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-s.outbound:
			firings := s.aliases.MatchInput(line)
			if len(firings) == 0 {
				s.writeRaw(line)
				continue
			}
			host := s.newHost()
			lineNum := s.currentLineNumber()
			for _, f := range firings {
				if scriptErr := s.executor.RunBody(s.Profile.ID, f, lineNum, host); scriptErr != nil {
					s.log.Error("alias body failed", "alias", f.Name, "error", scriptErr.Err, "timeout", scriptErr.Timeout)
				}
			}
		}
	}
}

// Send queues a line of user input for outbound alias evaluation. It
// never blocks the caller indefinitely: a full queue drops the oldest
// pending line, matching the orchestrator's backpressure stance that
// inbound/outbound processing, not the caller, owns flow control.
func (s *Session) Send(line string) {
	select {
	case s.outbound <- line:
	default:
		select {
		case <-s.outbound:
		default:
		}
		s.outbound <- line
	}
}

func (s *Session) writeRaw(line string) {
	if s.conn == nil {
		return
	}
	s.conn.Write([]byte(line + "\r\n"))
}

// Snapshot returns the current scrollback snapshot, O(1) and non-blocking.
func (s *Session) Snapshot() *scrollback.Snapshot { return s.buffer.Snapshot() }

// TriggerNames lists every registered trigger name, for the control
// transport's list-triggers op.
func (s *Session) TriggerNames() []string { return s.triggers.Names() }

// AliasNames lists every registered alias name, for list-aliases.
func (s *Session) AliasNames() []string { return s.aliases.Names() }

// SetTriggerEnabled toggles a trigger by name; unknown names are a no-op.
func (s *Session) SetTriggerEnabled(name string, enabled bool) { s.triggers.SetEnabled(name, enabled) }

// SetAliasEnabled toggles an alias by name; unknown names are a no-op.
func (s *Session) SetAliasEnabled(name string, enabled bool) { s.aliases.SetEnabled(name, enabled) }

// MapCache exposes the session's shared map cache reference, for the
// control transport's map-* ops.
func (s *Session) MapCache() *mapcache.Cache { return s.mapCache }

func telnetPromptSource(sig telnet.PromptSignal) vtparse.PromptSource {
	if sig == telnet.SignalEOR {
		return vtparse.PromptSourceTelnetEOR
	}
	return vtparse.PromptSourceTelnetGA
}

// Reload tears down both registries and clears pending edit-queue state,
// matching session_reload() and Open Question 2 (no in-progress edit
// queue survives reload or reconnect).
func (s *Session) Reload() {
	s.triggers.Reset()
	s.aliases.Reset()
	s.editQueue.Drain()
}
