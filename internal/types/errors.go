package types

import "errors"

// Sentinel errors for cohortkeeper operations.
var (
	// ErrEmptyPath indicates a condition without a field path.
	ErrEmptyPath = errors.New("condition path is empty")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrRuleTooDeep indicates a rule tree exceeds MaxRuleDepth.
	ErrRuleTooDeep = errors.New("rule tree exceeds maximum depth")

	// ErrInvalidOperator indicates an unknown operator.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInValuesNotArray indicates an in/nin condition whose value is not a list.
	ErrInValuesNotArray = errors.New("in/nin operator requires an array value")

	// ErrTooManyInValues indicates an in/nin list exceeds MaxInOperatorValues.
	ErrTooManyInValues = errors.New("in/nin operator has too many values")

	// ErrInvalidRegex indicates a regex spec that does not compile.
	ErrInvalidRegex = errors.New("invalid regex")

	// ErrUnknownNodeKind indicates a rule node kind outside condition/and/or/not.
	ErrUnknownNodeKind = errors.New("unknown rule node kind")

	// ErrMissingChild indicates a not node without a child.
	ErrMissingChild = errors.New("not node requires a child")

	// ErrRowEvaluation wraps a failure recovered while evaluating one event.
	ErrRowEvaluation = errors.New("rule evaluation failed for event")

	// ErrSegmentNotFound indicates an unknown predefined segment id.
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrInvalidPredicate indicates an unknown metric predicate field or operator.
	ErrInvalidPredicate = errors.New("invalid metric predicate")
)
