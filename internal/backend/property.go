package backend

import (
	"strings"

	"github.com/roach88/autoverify/internal/ir"
)

// checkedProperties lists the predicates a harness checks, postconditions
// first, in declaration order.
func checkedProperties(h ir.Harness) []string {
	out := make([]string, 0, len(h.Ensures)+len(h.Assertions)+len(h.LoopInvariants))
	out = append(out, h.Ensures...)
	out = append(out, h.Assertions...)
	out = append(out, h.LoopInvariants...)
	return out
}

// satisfiedProperty describes everything a successful harness established.
func satisfiedProperty(h ir.Harness) string {
	return strings.Join(checkedProperties(h), "; ")
}

// firstProperty is the property reported for a failure when the checker does
// not name the violated check.
func firstProperty(h ir.Harness) string {
	props := checkedProperties(h)
	if len(props) == 0 {
		return ""
	}
	return props[0]
}
