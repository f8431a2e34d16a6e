// Package markers defines the annotation contract shared by prompt
// composition and response parsing. The syntax is bit-exact: the
// generation channel is instructed to reproduce these markers verbatim,
// and the report parser recovers them by regex. Changing either side
// alone breaks the contract.
package markers

import "regexp"

// Terminator is emitted once after the last evaluation in a batch or
// single-shot response.
const Terminator = "[ALL_EVALUATIONS_COMPLETE]"

const (
	startPrefix = "[STUDENT_EVAL_START:"
	endPrefix   = "[STUDENT_EVAL_END:"
	suffix      = "]"
)

// Start returns the start marker for a display name.
func Start(displayName string) string {
	return startPrefix + displayName + suffix
}

// End returns the end marker for a display name.
func End(displayName string) string {
	return endPrefix + displayName + suffix
}

// StartPattern matches any start marker, capturing the display name. The
// end marker is located by exact string match against End(name); only the
// start side needs a pattern.
var StartPattern = regexp.MustCompile(`\[STUDENT_EVAL_START:([^\]]+)\]`)
