package quote

import (
	"fmt"
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CompilationError indicates a where expression could not be compiled
type CompilationError struct {
	Expression string
	Reason     string
	Err        error
}

func (e *CompilationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compilation error in '%s': %s: %v", e.Expression, e.Reason, e.Err)
	}
	return fmt.Sprintf("compilation error in '%s': %s", e.Expression, e.Reason)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// Where is a compiled client-side refinement over result rows, e.g.
//
//	trailingPE < 20 and contains(longName, "bank")
//
// Row keys are available as variables; keys absent from a row evaluate to nil.
type Where struct {
	expression string
	program    *vm.Program
}

// CompileWhere compiles a boolean expression over row keys
func CompileWhere(expression string) (*Where, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	program, err := expr.Compile(expression,
		expr.Env(helperFunctions()),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	return &Where{expression: expression, program: program}, nil
}

// Expression returns the source expression
func (w *Where) Expression() string {
	return w.expression
}

// Match reports whether the row satisfies the expression. Rows that make the
// expression fail at runtime (e.g. comparing a missing value) or evaluate to
// a non-boolean do not match.
func (w *Where) Match(row Row) bool {
	env := helperFunctions()
	maps.Copy(env, row)

	result, err := expr.Run(w.program, env)
	if err != nil {
		return false
	}
	matched, ok := result.(bool)
	return ok && matched
}

// Apply returns the matching rows in their original order
func (w *Where) Apply(rows []Row) []Row {
	matched := make([]Row, 0, len(rows))
	for _, row := range rows {
		if w.Match(row) {
			matched = append(matched, row)
		}
	}
	return matched
}

func helperFunctions() map[string]any {
	return map[string]any{
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"startsWith": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"endsWith": func(str, suffix string) bool {
			return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}
