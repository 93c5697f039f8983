package filter

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPredicate(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		op          Operator
		operands    []any
		wantErr     bool
		errContains string
	}{
		{name: "between", field: FieldPrice, op: OpBTWN, operands: []any{10, 100}},
		{name: "between equal bounds", field: FieldPrice, op: OpBTWN, operands: []any{10.0, 10.0}},
		{name: "between inverted", field: FieldPrice, op: OpBTWN, operands: []any{100, 10}, wantErr: true, errContains: "cannot be greater"},
		{name: "between one operand", field: FieldPrice, op: OpBTWN, operands: []any{10}, wantErr: true, errContains: "exactly two"},
		{name: "between strings", field: FieldPrice, op: OpBTWN, operands: []any{"a", "b"}, wantErr: true, errContains: "numeric"},
		{name: "greater than", field: FieldMarketCap, op: OpGT, operands: []any{int64(1e9)}},
		{name: "less than two operands", field: FieldPERatio, op: OpLT, operands: []any{1, 2}, wantErr: true, errContains: "exactly one"},
		{name: "gte string", field: FieldVolume, op: OpGTE, operands: []any{"many"}, wantErr: true, errContains: "numeric"},
		{name: "eq string", field: FieldSector, op: OpEQ, operands: []any{"Technology"}},
		{name: "eq empty", field: FieldSector, op: OpEQ, wantErr: true, errContains: "at least one"},
		{name: "eq empty string", field: FieldSector, op: OpEQ, operands: []any{""}, wantErr: true, errContains: "empty string"},
		{name: "in several", field: FieldExchange, op: OpIN, operands: []any{"NMS", "NYQ"}},
		{name: "nan", field: FieldPERatio, op: OpGT, operands: []any{math.NaN()}, wantErr: true, errContains: "finite"},
		{name: "unsupported type", field: FieldPERatio, op: OpGT, operands: []any{true}, wantErr: true, errContains: "unsupported"},
		{name: "unknown operator", field: FieldPERatio, op: Operator("NE"), operands: []any{1}, wantErr: true, errContains: "unknown operator"},
		{name: "empty field", field: " ", op: OpEQ, operands: []any{1}, wantErr: true},
		{name: "percentage in range", field: FieldDividendYield, op: OpBTWN, operands: []any{0, 100}},
		{name: "percentage above range", field: FieldDividendYield, op: OpGT, operands: []any{150}, wantErr: true, errContains: "[0, 100]"},
		{name: "percentage below range", field: FieldProfitMargin, op: OpLTE, operands: []any{-1}, wantErr: true, errContains: "[0, 100]"},
		{name: "unbounded growth may be negative", field: FieldRevenueGrowth, op: OpGTE, operands: []any{-25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPredicate(tt.field, tt.op, tt.operands...)
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.field, p.Field())
			assert.Equal(t, tt.op, p.Operator())
		})
	}
}

func TestPredicateNormalizesNumbers(t *testing.T) {
	p, err := NewPredicate(FieldPrice, OpBTWN, 10, int64(20))
	require.NoError(t, err)

	assert.Equal(t, []any{10.0, 20.0}, p.Operands())

	ops := p.Operands()
	ops[0] = 99.0
	assert.Equal(t, 10.0, p.Operands()[0], "Operands should return a copy")
}

func TestPredicateMarshalJSON(t *testing.T) {
	p, err := NewPredicate(FieldPrice, OpBTWN, 10, 100)
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"operator":"BTWN","operands":["intradayprice",10,100]}`, string(data))
}

func TestNewGroup(t *testing.T) {
	p, err := NewPredicate(FieldSector, OpEQ, "Technology")
	require.NoError(t, err)

	_, err = NewGroup(And)
	assert.Error(t, err)

	_, err = NewGroup(Combinator("XOR"), p)
	assert.Error(t, err)

	_, err = NewGroup(Or, p, nil)
	assert.Error(t, err)

	g, err := NewGroup(Or, p)
	require.NoError(t, err)
	assert.Equal(t, Or, g.Combinator())
	assert.Len(t, g.Children(), 1)
	assert.Equal(t, 1, g.Depth())
}

func TestGroupMarshalJSONNested(t *testing.T) {
	tech, _ := NewPredicate(FieldSector, OpEQ, "Technology")
	health, _ := NewPredicate(FieldSector, OpEQ, "Healthcare")
	price, _ := NewPredicate(FieldPrice, OpGT, 5)

	sectors, err := NewGroup(Or, tech, health)
	require.NoError(t, err)
	root, err := NewGroup(And, price, sectors)
	require.NoError(t, err)

	assert.Equal(t, 2, root.Depth())

	data, err := json.Marshal(root)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"operator": "AND",
		"operands": [
			{"operator": "GT", "operands": ["intradayprice", 5]},
			{"operator": "OR", "operands": [
				{"operator": "EQ", "operands": ["sector", "Technology"]},
				{"operator": "EQ", "operands": ["sector", "Healthcare"]}
			]}
		]
	}`, string(data))
}

func TestCanonicalIgnoresOrder(t *testing.T) {
	a, _ := NewPredicate(FieldSector, OpEQ, "Technology")
	b, _ := NewPredicate(FieldPrice, OpGT, 5)
	in1, _ := NewPredicate(FieldExchange, OpIN, "NMS", "NYQ")
	in2, _ := NewPredicate(FieldExchange, OpIN, "NYQ", "NMS")

	g1, _ := NewGroup(And, a, b, in1)
	g2, _ := NewGroup(And, in2, b, a)

	assert.Equal(t, g1.canonical(), g2.canonical())

	or, _ := NewGroup(Or, a, b)
	and, _ := NewGroup(And, a, b)
	assert.NotEqual(t, or.canonical(), and.canonical())
}

func TestValidationErrorMessage(t *testing.T) {
	err := invalid("price", "bad value")
	assert.Equal(t, "invalid filter 'price': bad value", err.Error())

	err = invalid("", "no filters")
	assert.Equal(t, "invalid query: no filters", err.Error())
}

func TestLookupField(t *testing.T) {
	def, ok := LookupField("price")
	require.True(t, ok)
	assert.Equal(t, FieldPrice, def.Upstream)

	def, ok = LookupField(FieldDividendYield)
	require.True(t, ok)
	assert.Equal(t, "dividend_yield", def.Name)
	assert.True(t, def.Percentage)

	_, ok = LookupField("nope")
	assert.False(t, ok)

	assert.Contains(t, FieldNames(), "market_cap")
}

func TestAvailable(t *testing.T) {
	sectors, err := Available("sector")
	require.NoError(t, err)
	assert.Contains(t, sectors, "Technology")

	sectors[0] = "mutated"
	again, _ := Available("sectors")
	assert.Equal(t, Sectors[0], again[0], "Available should return a copy")

	regions, err := Available("regions")
	require.NoError(t, err)
	assert.Contains(t, regions, DefaultRegion)

	_, err = Available("colour")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
