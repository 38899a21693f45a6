package condition

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"contentforge/internal/blueprint"
	"contentforge/internal/value"
)

// Result is the outcome of evaluating a condition: whether it was
// satisfied, and a stable, human-readable reason (§4.3 Output).
type Result struct {
	Satisfied bool
	Reason    string
}

// Evaluator evaluates blueprint.ConditionDef trees against values resolved
// through a Resolver. Regex patterns from `matches` clauses are compiled
// once and cached, mirroring expression.Evaluator.regexCache.
type Evaluator struct {
	regexCache sync.Map // pattern string -> *regexp.Regexp
	fold       cases.Caser
}

func NewEvaluator() *Evaluator {
	return &Evaluator{fold: cases.Fold()}
}

// Evaluate evaluates cond against resolver, returning whether it is
// satisfied and why.
func (e *Evaluator) Evaluate(cond blueprint.ConditionDef, resolver *Resolver) (Result, error) {
	if cond.IsGroup() {
		return e.evaluateGroup(cond, resolver)
	}
	return e.evaluateClause(cond, resolver)
}

func (e *Evaluator) evaluateGroup(group blueprint.ConditionDef, resolver *Resolver) (Result, error) {
	if len(group.All) > 0 {
		for _, child := range group.All {
			res, err := e.Evaluate(child, resolver)
			if err != nil {
				return Result{}, err
			}
			if !res.Satisfied {
				return Result{Satisfied: false, Reason: res.Reason}, nil
			}
		}
	}
	if len(group.Any) > 0 {
		var lastReason string
		for _, child := range group.Any {
			res, err := e.Evaluate(child, resolver)
			if err != nil {
				return Result{}, err
			}
			if res.Satisfied {
				return res, nil
			}
			lastReason = res.Reason
		}
		return Result{Satisfied: false, Reason: lastReason}, nil
	}
	return Result{Satisfied: true, Reason: "empty group"}, nil
}

func (e *Evaluator) evaluateClause(clause blueprint.ConditionDef, resolver *Resolver) (Result, error) {
	v, found, err := resolver.Resolve(clause.When)
	if err != nil {
		return Result{}, err
	}

	if clause.Exists != nil {
		satisfied := value.Exists(v, found) == *clause.Exists
		return Result{
			Satisfied: satisfied,
			Reason:    fmt.Sprintf("%s exists=%v (want %v)", clause.When, value.Exists(v, found), *clause.Exists),
		}, nil
	}

	if !found {
		return Result{Satisfied: false, Reason: "not found"}, nil
	}

	if clause.Is != nil {
		ok := e.equalsCoerced(v, *clause.Is)
		return Result{Satisfied: ok, Reason: e.reason(clause.When, "is", *clause.Is, ok)}, nil
	}
	if clause.IsNot != nil {
		ok := !e.equalsCoerced(v, *clause.IsNot)
		return Result{Satisfied: ok, Reason: e.reason(clause.When, "isNot", *clause.IsNot, ok)}, nil
	}
	if clause.Contains != nil {
		ok, err := e.contains(v, *clause.Contains, clause.CaseSensitive)
		if err != nil {
			return Result{}, err
		}
		return Result{Satisfied: ok, Reason: e.reason(clause.When, "contains", *clause.Contains, ok)}, nil
	}
	if clause.GreaterThan != nil {
		return e.numericCompare(clause.When, v, *clause.GreaterThan, "greaterThan", func(a, b float64) bool { return a > b })
	}
	if clause.LessThan != nil {
		return e.numericCompare(clause.When, v, *clause.LessThan, "lessThan", func(a, b float64) bool { return a < b })
	}
	if clause.GreaterOrEqual != nil {
		return e.numericCompare(clause.When, v, *clause.GreaterOrEqual, "greaterOrEqual", func(a, b float64) bool { return a >= b })
	}
	if clause.LessOrEqual != nil {
		return e.numericCompare(clause.When, v, *clause.LessOrEqual, "lessOrEqual", func(a, b float64) bool { return a <= b })
	}
	if clause.Matches != "" {
		ok, err := e.matches(v, clause.Matches, clause.CaseSensitive)
		if err != nil {
			return Result{}, err
		}
		return Result{Satisfied: ok, Reason: fmt.Sprintf("%s matches %q: %v", clause.When, clause.Matches, ok)}, nil
	}

	return Result{Satisfied: true, Reason: "no operator, defaulting to satisfied"}, nil
}

func (e *Evaluator) reason(when, op string, want any, ok bool) string {
	return fmt.Sprintf("%s %s %v: %v", when, op, want, ok)
}

func (e *Evaluator) equalsCoerced(v value.Value, want any) bool {
	wantValue, err := value.FromAny(want)
	if err != nil {
		return false
	}

	switch wantValue.Kind() {
	case value.KindNumber:
		n, ok := value.CoerceToNumber(v)
		if !ok {
			return false
		}
		wn, _ := wantValue.AsNumber()
		return n == wn
	case value.KindBool:
		b, ok := value.CoerceToBool(v)
		if !ok {
			return false
		}
		wb, _ := wantValue.AsBool()
		return b == wb
	default:
		return value.DeepEqual(v, wantValue)
	}
}

func (e *Evaluator) contains(v value.Value, want any, caseSensitive bool) (bool, error) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		wantValue, err := value.FromAny(want)
		if err != nil {
			return false, err
		}
		ws, ok := wantValue.AsString()
		if !ok {
			return false, nil
		}
		if ws == "" {
			return true, nil
		}
		if !caseSensitive {
			s = e.fold.String(s)
			ws = e.fold.String(ws)
		}
		return strings.Contains(s, ws), nil
	case value.KindArray:
		wantValue, err := value.FromAny(want)
		if err != nil {
			return false, err
		}
		arr, _ := v.AsArray()
		for _, item := range arr {
			if value.DeepEqual(item, wantValue) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func (e *Evaluator) numericCompare(when string, v value.Value, want any, op string, cmp func(a, b float64) bool) (Result, error) {
	wantValue, err := value.FromAny(want)
	if err != nil {
		return Result{}, err
	}
	a, ok := value.CoerceToNumber(v)
	if !ok {
		return Result{Satisfied: false, Reason: fmt.Sprintf("%s is not numeric", when)}, nil
	}
	b, ok := value.CoerceToNumber(wantValue)
	if !ok {
		return Result{Satisfied: false, Reason: fmt.Sprintf("%s comparison value is not numeric", op)}, nil
	}
	ok = cmp(a, b)
	return Result{Satisfied: ok, Reason: fmt.Sprintf("%s %s %v: %v", when, op, b, ok)}, nil
}

func (e *Evaluator) matches(v value.Value, pattern string, caseSensitive bool) (bool, error) {
	s, ok := v.AsString()
	if !ok {
		return false, nil
	}

	effective := pattern
	if !caseSensitive {
		effective = "(?i)" + pattern
	}

	cached, ok := e.regexCache.Load(effective)
	var re *regexp.Regexp
	if ok {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile(effective)
		if err != nil {
			return false, &InvalidPatternError{Pattern: pattern, Cause: err}
		}
		e.regexCache.Store(effective, compiled)
		re = compiled
	}
	return re.MatchString(s), nil
}
