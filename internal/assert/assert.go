package assert

import (
	"fmt"
)

// That panics when cond is false. Only for states the surrounding code
// already rules out; a failure means a programming error, not bad input.
func That(cond bool, format string, args ...any) {
	if !cond {
		panic("assert.That: " + fmt.Sprintf(format, args...))
	}
}
