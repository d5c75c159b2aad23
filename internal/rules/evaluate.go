// internal/rules/evaluate.go
package rules

import "github.com/solatis/cohortkeeper/internal/types"

/*
 * Rule evaluation.
 *
 * Evaluates a rule tree against one EventRecord by exhaustive match over the
 * node kinds. Pure and total: every well-formed tree yields a boolean.
 *
 * Evaluation flow:
 *   1. Condition: Resolve(path) -> Apply(op, value, target)
 *   2. And: every child, short-circuit on first false (empty And is true)
 *   3. Or: some child, short-circuit on first true (empty Or is false)
 *   4. Not: negation of the child; a Not without a child is false
 *   5. Unknown or nil node: false
 *
 * Absent fields reach Apply as nil, so "missing" and "null" behave the same
 * for every operator.
 */

// Evaluate reports whether rec satisfies node.
func Evaluate(node Node, rec types.EventRecord) bool {
	ok, _ := EvaluateChecked(node, rec)
	return ok
}

// EvaluateChecked is Evaluate that also returns the first failure absorbed as
// a non-match, such as a regex spec that does not compile. The boolean is the
// same one Evaluate returns.
func EvaluateChecked(node Node, rec types.EventRecord) (bool, error) {
	ev := evaluator{rec: rec}
	ok := ev.eval(node)
	return ok, ev.err
}

// evaluator carries the record and the first absorbed failure through one walk.
type evaluator struct {
	rec types.EventRecord
	err error
}

func (ev *evaluator) eval(node Node) bool {
	switch n := node.(type) {
	case Condition:
		return ev.condition(n)
	case *Condition:
		return n != nil && ev.condition(*n)
	case And:
		return ev.all(n.Children)
	case *And:
		return n != nil && ev.all(n.Children)
	case Or:
		return ev.any(n.Children)
	case *Or:
		return n != nil && ev.any(n.Children)
	case Not:
		return ev.not(n)
	case *Not:
		return n != nil && ev.not(*n)
	default:
		return false
	}
}

// condition resolves the condition path and applies its operator.
func (ev *evaluator) condition(cond Condition) bool {
	if cond.Op == OpRegex {
		if err := regexSpecError(cond.Value); err != nil {
			if ev.err == nil {
				ev.err = err
			}
			return false
		}
	}
	resolved := Resolve(ev.rec, cond.Path)
	var left any
	if resolved.Found {
		left = resolved.Value
	}
	return Apply(cond.Op, left, cond.Value)
}

func (ev *evaluator) all(children []Node) bool {
	for _, child := range children {
		if !ev.eval(child) {
			return false
		}
	}
	return true
}

func (ev *evaluator) any(children []Node) bool {
	for _, child := range children {
		if ev.eval(child) {
			return true
		}
	}
	return false
}

// not treats a missing child as a malformed node rather than as an
// always-false child, so Not{} never matches.
func (ev *evaluator) not(n Not) bool {
	if n.Child == nil {
		return false
	}
	return !ev.eval(n.Child)
}
