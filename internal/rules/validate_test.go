package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/solatis/cohortkeeper/internal/types"
)

func TestValidate_Valid(t *testing.T) {
	rule := Or{Children: []Node{
		And{Children: []Node{
			Condition{Path: "event", Op: OpEq, Value: "payment"},
			Condition{Path: "properties.amount", Op: OpGte, Value: 200.0},
		}},
		Not{Child: Condition{Path: "properties.region", Op: OpIn, Value: []any{"eu", "us"}}},
		Condition{Path: "properties.page", Op: OpRegex, Value: "/^checkout/i"},
		Condition{Path: "properties.plan", Op: OpExists},
	}}

	if err := Validate(rule); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	deepPath := strings.Repeat("a.", types.MaxPathDepth) + "a"

	tooMany := make([]any, types.MaxInOperatorValues+1)
	for i := range tooMany {
		tooMany[i] = float64(i)
	}

	var deepRule Node = Condition{Path: "event", Op: OpExists}
	for i := 0; i < types.MaxRuleDepth; i++ {
		deepRule = Not{Child: deepRule}
	}

	tests := []struct {
		name    string
		node    Node
		wantErr error
	}{
		{name: "empty path", node: Condition{Path: "", Op: OpEq}, wantErr: types.ErrEmptyPath},
		{name: "path too deep", node: Condition{Path: deepPath, Op: OpExists}, wantErr: types.ErrPathTooDeep},
		{name: "invalid operator", node: Condition{Path: "event", Op: "startsWith"}, wantErr: types.ErrInvalidOperator},
		{name: "in without list", node: Condition{Path: "event", Op: OpIn, Value: "a"}, wantErr: types.ErrInValuesNotArray},
		{name: "nin without list", node: Condition{Path: "event", Op: OpNin, Value: 3.0}, wantErr: types.ErrInValuesNotArray},
		{name: "too many in values", node: Condition{Path: "event", Op: OpIn, Value: tooMany}, wantErr: types.ErrTooManyInValues},
		{name: "bad regex", node: Condition{Path: "event", Op: OpRegex, Value: "/(unclosed/"}, wantErr: types.ErrInvalidRegex},
		{name: "unknown kind", node: Unknown{Name: "xor"}, wantErr: types.ErrUnknownNodeKind},
		{name: "nil node", node: nil, wantErr: types.ErrUnknownNodeKind},
		{name: "not without child", node: Not{}, wantErr: types.ErrMissingChild},
		{name: "nested error", node: And{Children: []Node{
			Condition{Path: "event", Op: OpExists},
			Or{Children: []Node{Condition{Path: "", Op: OpEq}}},
		}}, wantErr: types.ErrEmptyPath},
		{name: "rule too deep", node: deepRule, wantErr: types.ErrRuleTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.node)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DepthBoundary(t *testing.T) {
	var node Node = Condition{Path: "event", Op: OpExists}
	for i := 1; i < types.MaxRuleDepth; i++ {
		node = Not{Child: node}
	}
	if err := Validate(node); err != nil {
		t.Errorf("Validate() at max depth error = %v, want nil", err)
	}
}
