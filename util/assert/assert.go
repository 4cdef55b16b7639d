// Package assert provides lightweight invariant checks. A failed assertion
// indicates a bug in this core, not a peer protocol violation — those are
// reported as errors (see internal/wire.ProtocolViolationError) instead.
package assert

import "fmt"

// Assert panics with the formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

// Never panics unconditionally; use it for branches that should be
// unreachable.
func Never(format string, args ...any) {
	panic(fmt.Sprintf("unreachable: "+format, args...))
}

// IsNil panics with the formatted message if err is non-nil.
func IsNil(err error, format string, args ...any) {
	if err != nil {
		panic(fmt.Sprintf("assertion failed: "+format+": %v", append(args, err)...))
	}
}

// IsNotNil panics with the formatted message if v is nil.
func IsNotNil(v any, format string, args ...any) {
	if v == nil {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
