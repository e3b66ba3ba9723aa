package rules

import "time"

// Result is the outcome of evaluating one media item against one rule's
// compiled criteria.
type Result struct {
	Matches    bool              `json:"matches"`
	Conditions []ConditionResult `json:"conditions"`
}

// Evaluate matches the item against the compiled criteria. It is pure and
// deterministic: no I/O, the clock is an explicit argument, and the same
// (item, criteria, now) always yields the same result.
//
// Criteria with zero defined conditions never match; a rule that does not
// constrain anything must not flag the whole catalog.
func (cc *Compiled) Evaluate(item *MediaItem, now time.Time) Result {
	results := make([]ConditionResult, 0, len(cc.Conditions))
	for _, cond := range cc.Conditions {
		actual, passed := cond.eval(item, now)
		results = append(results, ConditionResult{
			Field:    cond.Field,
			Operator: cond.Operator,
			Expected: cond.Expected,
			Actual:   actual,
			Passed:   passed,
		})
	}

	if len(results) == 0 {
		return Result{Matches: false, Conditions: results}
	}

	matches := cc.Operator == OperatorAnd
	for _, r := range results {
		if cc.Operator == OperatorAnd {
			matches = matches && r.Passed
		} else {
			matches = matches || r.Passed
		}
	}
	return Result{Matches: matches, Conditions: results}
}
