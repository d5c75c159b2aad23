// internal/rules/node.go
package rules

import (
	"encoding/json"
	"fmt"
)

/*
 * Rule tree representation.
 *
 * A rule is a closed sum type: Condition, And, Or, Not. Unknown carries a
 * node kind this version does not understand so that decoding stays lenient
 * and evaluation stays total (Unknown evaluates to false).
 *
 * Wire format:
 *   {"kind":"condition","path":"properties.plan","op":"eq","value":"pro"}
 *   {"kind":"and","children":[...]}
 *   {"kind":"or","children":[...]}
 *   {"kind":"not","child":{...}}
 *
 * Trees are immutable once built: no shared sub-nodes, no cycles.
 */

// Kind names a rule node variant on the wire.
type Kind string

const (
	KindCondition Kind = "condition"
	KindAnd       Kind = "and"
	KindOr        Kind = "or"
	KindNot       Kind = "not"
)

// Node is one node of a rule tree. The unexported marker method closes the set
// of implementations to this package.
type Node interface {
	Kind() Kind
	isNode()
}

// Condition compares the value resolved at Path against Value using Op.
type Condition struct {
	Path  string
	Op    Operator
	Value any // unused by exists/nexists
}

// And matches when every child matches.
type And struct {
	Children []Node
}

// Or matches when at least one child matches.
type Or struct {
	Children []Node
}

// Not negates its child.
type Not struct {
	Child Node
}

// Unknown is a decoded node whose kind is not recognized.
type Unknown struct {
	Name string
}

func (Condition) Kind() Kind { return KindCondition }
func (And) Kind() Kind       { return KindAnd }
func (Or) Kind() Kind        { return KindOr }
func (Not) Kind() Kind       { return KindNot }
func (u Unknown) Kind() Kind { return Kind(u.Name) }

func (Condition) isNode() {}
func (And) isNode()       {}
func (Or) isNode()        {}
func (Not) isNode()       {}
func (Unknown) isNode()   {}

// wireNode is the JSON shape shared by all node kinds.
type wireNode struct {
	Kind     Kind              `json:"kind"`
	Path     string            `json:"path,omitempty"`
	Op       Operator          `json:"op,omitempty"`
	Value    any               `json:"value,omitempty"`
	Children []json.RawMessage `json:"children,omitempty"`
	Child    json.RawMessage   `json:"child,omitempty"`
}

// ParseRule decodes a JSON rule tree.
// Unrecognized kinds decode to Unknown rather than failing; only malformed
// JSON is an error.
func ParseRule(data []byte) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode rule: %w", err)
	}

	switch w.Kind {
	case KindCondition:
		return Condition{Path: w.Path, Op: w.Op, Value: w.Value}, nil
	case KindAnd, KindOr:
		children := make([]Node, 0, len(w.Children))
		for _, raw := range w.Children {
			child, err := ParseRule(raw)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if w.Kind == KindAnd {
			return And{Children: children}, nil
		}
		return Or{Children: children}, nil
	case KindNot:
		if len(w.Child) == 0 || string(w.Child) == "null" {
			return Not{}, nil
		}
		child, err := ParseRule(w.Child)
		if err != nil {
			return nil, err
		}
		return Not{Child: child}, nil
	default:
		return Unknown{Name: string(w.Kind)}, nil
	}
}

// MarshalJSON implements json.Marshaler.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind     `json:"kind"`
		Path  string   `json:"path"`
		Op    Operator `json:"op"`
		Value any      `json:"value,omitempty"`
	}{KindCondition, c.Path, c.Op, c.Value})
}

// MarshalJSON implements json.Marshaler.
func (a And) MarshalJSON() ([]byte, error) {
	return marshalGroup(KindAnd, a.Children)
}

// MarshalJSON implements json.Marshaler.
func (o Or) MarshalJSON() ([]byte, error) {
	return marshalGroup(KindOr, o.Children)
}

// MarshalJSON implements json.Marshaler.
func (n Not) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind `json:"kind"`
		Child Node `json:"child"`
	}{KindNot, n.Child})
}

// MarshalJSON implements json.Marshaler.
func (u Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
	}{u.Name})
}

func marshalGroup(kind Kind, children []Node) ([]byte, error) {
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(struct {
		Kind     Kind   `json:"kind"`
		Children []Node `json:"children"`
	}{kind, children})
}
