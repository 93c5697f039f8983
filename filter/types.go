package filter

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Operator is a leaf comparison understood by the upstream screener
type Operator string

const (
	OpEQ   Operator = "EQ"
	OpBTWN Operator = "BTWN"
	OpGT   Operator = "GT"
	OpLT   Operator = "LT"
	OpGTE  Operator = "GTE"
	OpLTE  Operator = "LTE"
	OpIN   Operator = "IN"
)

// Combinator joins child nodes of a Group
type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// Node is either a Predicate or a Group. Both encode to the upstream
// {"operator": ..., "operands": [...]} shape.
type Node interface {
	json.Marshaler
	String() string

	// canonical returns an encoding that is identical for logically
	// equivalent nodes regardless of child order.
	canonical() string
}

// wireNode is the upstream representation of any node
type wireNode struct {
	Operator string `json:"operator"`
	Operands []any  `json:"operands"`
}

// Predicate is a single comparison against one field. It is immutable once
// constructed.
type Predicate struct {
	field    string
	op       Operator
	operands []any
}

// NewPredicate validates operator arity and value bounds and returns the
// predicate. Numeric operands are normalized to float64.
func NewPredicate(field string, op Operator, operands ...any) (Predicate, error) {
	if strings.TrimSpace(field) == "" {
		return Predicate{}, invalid("", "predicate field is empty")
	}

	values := make([]any, 0, len(operands))
	for _, operand := range operands {
		v, err := normalizeOperand(field, operand)
		if err != nil {
			return Predicate{}, err
		}
		values = append(values, v)
	}

	switch op {
	case OpBTWN:
		if len(values) != 2 {
			return Predicate{}, invalid(field, "%s requires exactly two operands, got %d", op, len(values))
		}
		lo, okLo := values[0].(float64)
		hi, okHi := values[1].(float64)
		if !okLo || !okHi {
			return Predicate{}, invalid(field, "%s requires numeric operands", op)
		}
		if lo > hi {
			return Predicate{}, invalid(field, "minimum value %g cannot be greater than maximum value %g", lo, hi)
		}
	case OpGT, OpLT, OpGTE, OpLTE:
		if len(values) != 1 {
			return Predicate{}, invalid(field, "%s requires exactly one operand, got %d", op, len(values))
		}
		if _, ok := values[0].(float64); !ok {
			return Predicate{}, invalid(field, "%s requires a numeric operand", op)
		}
	case OpEQ, OpIN:
		if len(values) == 0 {
			return Predicate{}, invalid(field, "%s requires at least one operand", op)
		}
	default:
		return Predicate{}, invalid(field, "unknown operator %q", op)
	}

	if def, ok := LookupField(field); ok && def.Percentage {
		for _, v := range values {
			if f, isNum := v.(float64); isNum && (f < 0 || f > 100) {
				return Predicate{}, invalid(field, "percentage value %g is outside [0, 100]", f)
			}
		}
	}

	return Predicate{field: field, op: op, operands: values}, nil
}

func normalizeOperand(field string, operand any) (any, error) {
	switch v := operand.(type) {
	case string:
		if v == "" {
			return nil, invalid(field, "empty string operand")
		}
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalid(field, "operand must be a finite number")
		}
		return v, nil
	case float32:
		return normalizeOperand(field, float64(v))
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	default:
		return nil, invalid(field, "unsupported operand type %T", operand)
	}
}

// Field returns the upstream field name
func (p Predicate) Field() string { return p.field }

// Operator returns the comparison operator
func (p Predicate) Operator() Operator { return p.op }

// Operands returns a copy of the comparison values
func (p Predicate) Operands() []any { return slices.Clone(p.operands) }

func (p Predicate) wire() wireNode {
	operands := make([]any, 0, len(p.operands)+1)
	operands = append(operands, p.field)
	operands = append(operands, p.operands...)
	return wireNode{Operator: string(p.op), Operands: operands}
}

// MarshalJSON encodes the predicate as [field, value...] operands
func (p Predicate) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.wire())
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.field, p.op, p.operands)
}

func (p Predicate) canonical() string {
	w := p.wire()
	if p.op == OpIN {
		// IN is a set; value order carries no meaning
		values := w.Operands[1:]
		slices.SortFunc(values, func(a, b any) int {
			return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
		})
	}
	data, _ := json.Marshal(w)
	return string(data)
}

// Group combines child nodes with AND or OR. It always has at least one child.
type Group struct {
	combinator Combinator
	children   []Node
}

// NewGroup validates the combinator and returns a group holding children in order
func NewGroup(combinator Combinator, children ...Node) (Group, error) {
	if combinator != And && combinator != Or {
		return Group{}, invalid("", "unknown combinator %q", combinator)
	}
	if len(children) == 0 {
		return Group{}, invalid("", "%s group requires at least one child", combinator)
	}
	for _, child := range children {
		if child == nil {
			return Group{}, invalid("", "%s group contains a nil child", combinator)
		}
	}
	return Group{combinator: combinator, children: slices.Clone(children)}, nil
}

// Combinator returns AND or OR
func (g Group) Combinator() Combinator { return g.combinator }

// Children returns a copy of the child nodes
func (g Group) Children() []Node { return slices.Clone(g.children) }

// Depth returns the nesting depth of the group, a group of leaves has depth 1
func (g Group) Depth() int {
	depth := 0
	for _, child := range g.children {
		if sub, ok := child.(Group); ok {
			depth = max(depth, sub.Depth())
		}
	}
	return depth + 1
}

// MarshalJSON encodes the group and its children recursively
func (g Group) MarshalJSON() ([]byte, error) {
	operands := make([]any, len(g.children))
	for i, child := range g.children {
		operands[i] = child
	}
	return json.Marshal(wireNode{Operator: string(g.combinator), Operands: operands})
}

func (g Group) String() string {
	parts := make([]string, len(g.children))
	for i, child := range g.children {
		parts[i] = child.String()
	}
	return "(" + strings.Join(parts, " "+string(g.combinator)+" ") + ")"
}

func (g Group) canonical() string {
	parts := make([]string, len(g.children))
	for i, child := range g.children {
		parts[i] = child.canonical()
	}
	slices.Sort(parts)
	return `{"operator":"` + string(g.combinator) + `","operands":[` + strings.Join(parts, ",") + `]}`
}
