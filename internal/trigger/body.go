// Package trigger implements the Trigger/Alias Registry from spec.md §4.4:
// named, pattern-bound script bodies, matched in registration order with
// O(1) enable/disable/remove and atomic reload.
package trigger

// BodyKind discriminates the two script body forms from spec.md §3.
type BodyKind uint8

const (
	// BodySimple holds a source string evaluated with $1..$n (and named
	// group) substitution performed by the script executor.
	BodySimple BodyKind = iota
	// BodyFn references a stable callable handle, invoked with the
	// captures vector by the script executor.
	BodyFn
)

// Body is a trigger or alias's script body.
type Body struct {
	Kind   BodyKind
	Source string // BodySimple
	Handle string // BodyFn: a ScriptHandle id
}

// SimpleBody constructs a source-string body.
func SimpleBody(source string) Body { return Body{Kind: BodySimple, Source: source} }

// FnBody constructs a callable-handle body.
func FnBody(handle string) Body { return Body{Kind: BodyFn, Handle: handle} }
