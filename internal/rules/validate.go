// internal/rules/validate.go
package rules

import (
	"fmt"

	"github.com/solatis/cohortkeeper/internal/types"
)

/*
 * Rule validation.
 *
 * Checks an authored rule tree for problems that would make conditions
 * silently never match: unknown kinds and operators, overly deep trees or
 * paths, in/nin without a list, regex specs that do not compile.
 *
 * Validation is advisory. The executor evaluates unvalidated rules too and
 * turns each of these problems into a non-match for the affected rows. The
 * CLI and API validate up front so authors get an error instead of an empty
 * segment.
 */

// Validate returns the first problem found in node, or nil.
func Validate(node Node) error {
	return validateNode(node, 1)
}

// validateNode walks the tree depth-first, tracking nesting depth.
func validateNode(node Node, depth int) error {
	if depth > types.MaxRuleDepth {
		return types.ErrRuleTooDeep
	}

	switch n := node.(type) {
	case Condition:
		return validateCondition(n)
	case *Condition:
		if n == nil {
			return types.ErrUnknownNodeKind
		}
		return validateCondition(*n)
	case And:
		return validateChildren(n.Children, depth)
	case *And:
		if n == nil {
			return types.ErrUnknownNodeKind
		}
		return validateChildren(n.Children, depth)
	case Or:
		return validateChildren(n.Children, depth)
	case *Or:
		if n == nil {
			return types.ErrUnknownNodeKind
		}
		return validateChildren(n.Children, depth)
	case Not:
		if n.Child == nil {
			return types.ErrMissingChild
		}
		return validateNode(n.Child, depth+1)
	case *Not:
		if n == nil || n.Child == nil {
			return types.ErrMissingChild
		}
		return validateNode(n.Child, depth+1)
	case Unknown:
		return fmt.Errorf("%w: %q", types.ErrUnknownNodeKind, n.Name)
	default:
		return types.ErrUnknownNodeKind
	}
}

func validateChildren(children []Node, depth int) error {
	for _, child := range children {
		if err := validateNode(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// validateCondition enforces path, operator and value constraints.
func validateCondition(cond Condition) error {
	segs := ParsePath(cond.Path)
	if len(segs) == 0 {
		return types.ErrEmptyPath
	}
	if len(segs) > types.MaxPathDepth {
		return fmt.Errorf("%w: %q", types.ErrPathTooDeep, cond.Path)
	}
	if !cond.Op.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidOperator, cond.Op)
	}

	switch cond.Op {
	case OpIn, OpNin:
		values, ok := asList(cond.Value)
		if !ok {
			return fmt.Errorf("%w: path %q", types.ErrInValuesNotArray, cond.Path)
		}
		if len(values) > types.MaxInOperatorValues {
			return fmt.Errorf("%w: %d > %d", types.ErrTooManyInValues, len(values), types.MaxInOperatorValues)
		}
	case OpRegex:
		return regexSpecError(cond.Value)
	}
	return nil
}
