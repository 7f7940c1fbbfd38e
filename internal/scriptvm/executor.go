package scriptvm

import (
	"fmt"
	"time"

	"github.com/smudgy/smudgy/internal/pattern"
	"github.com/smudgy/smudgy/internal/trigger"
)

// ScriptError wraps a body failure (a thrown error or an exceeded wall-
// clock budget) with enough context for spec.md §7's logging contract:
// session id, trigger/alias name, and line number. It never propagates
// past the Executor; the orchestrator logs it and continues the pipeline.
type ScriptError struct {
	SessionID  string
	Name       string
	LineNumber int64
	Timeout    bool
	Err        error
}

func (e *ScriptError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("script %q (session %s, line %d): exceeded wall-clock budget", e.Name, e.SessionID, e.LineNumber)
	}
	return fmt.Sprintf("script %q (session %s, line %d): %v", e.Name, e.SessionID, e.LineNumber, e.Err)
}

// Executor is the single-threaded-per-session cooperative script runtime
// from spec.md §4.6. It has no goroutine of its own in steady state: RunBody
// executes on the caller's (the session orchestrator's) goroutine, spinning
// up a bounded helper goroutine only to enforce the wall-clock budget.
type Executor struct {
	Budget    time.Duration
	Callables *CallableRegistry
}

// NewExecutor creates an Executor with the given per-body wall-clock
// budget (spec.md default 500ms) and callable-handle registry.
func NewExecutor(budget time.Duration, callables *CallableRegistry) *Executor {
	if budget <= 0 {
		budget = 500 * time.Millisecond
	}
	return &Executor{Budget: budget, Callables: callables}
}

// RunBody evaluates one trigger or alias body against one match, isolating
// any failure, panic, or timeout into a *ScriptError instead of propagating
// it — spec.md §4.6's "if evaluation throws, the error is captured, logged,
// and the session continues; other triggers still run."
//
// Hazard: on a budget timeout RunBody returns without the body's goroutine
// stopping — Go has no preemptive cancellation for a running function, only
// cooperative, and bodies here never check a context. That goroutine keeps
// executing and can still call Host methods after RunBody has returned and
// the orchestrator has moved on to later lines. Every Host implementation
// must therefore tolerate a call arriving after its line has already been
// finalized: internal/session guards curLineText/curLineSpans/curLineNum
// behind a mutex for exactly this reason, and internal/editqueue.Queue and
// internal/scrollback.Buffer guard themselves. A timed-out body's staged
// edits still land somewhere (the queue for whatever line is current when
// it finally pushes them), just not the line that matched.
func (e *Executor) RunBody(sessionID string, firing trigger.Firing, lineNumber int64, host Host) *ScriptError {
	if len(firing.Matches) == 0 {
		return nil
	}
	m := firing.Matches[0]

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- e.evalOne(firing.Body, m, host)
	}()

	select {
	case err := <-done:
		if err != nil {
			return &ScriptError{SessionID: sessionID, Name: firing.Name, LineNumber: lineNumber, Err: err}
		}
		return nil
	case <-time.After(e.Budget):
		return &ScriptError{SessionID: sessionID, Name: firing.Name, LineNumber: lineNumber, Timeout: true}
	}
}

func (e *Executor) evalOne(body trigger.Body, m pattern.Match, host Host) error {
	switch body.Kind {
	case trigger.BodySimple:
		return Eval(body.Source, m.Named, host, e.Callables, m.Groups)
	case trigger.BodyFn:
		if e.Callables == nil {
			return fmt.Errorf("scriptvm: no callable registry configured")
		}
		return e.Callables.Invoke(body.Handle, m.Groups, host)
	default:
		return fmt.Errorf("scriptvm: unknown body kind %d", body.Kind)
	}
}
