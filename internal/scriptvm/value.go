// Package scriptvm implements the Script Executor from spec.md §4.6: a
// cooperative, single-threaded-per-session runtime that evaluates trigger
// and alias bodies and exposes the host operations they may call.
//
// The embedded script language itself is explicitly out of scope (spec.md
// treats "script language runtime internals" as a sandboxed foreign
// collaborator exposing named host operations); Eval implements just enough
// of a minimal expression/statement language — call chains, string/number/
// object literals, "+" string concatenation, and capture-group variables —
// to drive that host-operation surface from a trigger or alias body.
package scriptvm

import "fmt"

// ValueKind discriminates the handful of value shapes the mini-language
// needs: strings, numbers, booleans, and flat string/number objects (for
// style literals like {fg:"red"}).
type ValueKind uint8

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueNull
	ValueObject
)

// Value is one evaluated expression result.
type Value struct {
	Kind   ValueKind
	Str    string
	Num    float64
	Bool   bool
	Object map[string]Value
}

func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return fmt.Sprintf("%g", v.Num)
	case ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValueNull:
		return ""
	default:
		return fmt.Sprintf("%v", v.Object)
	}
}

func stringValue(s string) Value { return Value{Kind: ValueString, Str: s} }
func numberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }
