package resolver

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/utils"
)

// evalBoolExpr evaluates a flat postfix token stream over {name, not, and,
// or, xor, eq, neq} against the given name->value table, the same
// representation payload.CondIf carries for both tunableif (evaluated here,
// at resolve time) and booleanif (left for the lowerer to turn into a
// conditional-node expression, since a boolean's value can change without
// recompiling the policy).
func evalBoolExpr(tokens []string, values map[string]bool) (bool, error) {
	var stack utils.Stack[bool]

	pop := func() (bool, error) {
		v, err := stack.Pop()
		if err != nil {
			return false, errors.New("boolean expression malformed: stack underflow")
		}
		return v, nil
	}

	for _, tok := range tokens {
		switch tok {
		case "not":
			v, err := pop()
			if err != nil {
				return false, err
			}
			stack.Push(!v)
		case "and", "or", "xor", "eq", "neq":
			b, err := pop()
			if err != nil {
				return false, err
			}
			a, err := pop()
			if err != nil {
				return false, err
			}
			switch tok {
			case "and":
				stack.Push(a && b)
			case "or":
				stack.Push(a || b)
			case "xor":
				stack.Push(a != b)
			case "eq":
				stack.Push(a == b)
			case "neq":
				stack.Push(a != b)
			}
		default:
			v, ok := values[tok]
			if !ok {
				return false, errors.Errorf("unresolved boolean/tunable name %q", tok)
			}
			stack.Push(v)
		}
	}

	result, err := pop()
	if err != nil {
		return false, err
	}
	if stack.Count() != 0 {
		return false, errors.New("boolean expression malformed: leftover operands")
	}
	return result, nil
}
