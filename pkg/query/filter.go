// Package query builds SurrealQL statements from a small filter model.
// Every builder returns the statement text together with a variable map;
// user-supplied values always travel as bound parameters, never spliced
// into the statement.
package query

// Condition joins the values of a MultipleValues filter.
type Condition string

const (
	ConditionAnd Condition = "AND"
	ConditionOr  Condition = "OR"
)

// Filter is one predicate over a record column. The concrete types below
// are the only implementations.
type Filter interface {
	filter()
}

// SingleValue matches records whose column equals the value.
type SingleValue struct {
	Key   string
	Value any
}

// Range matches records whose column lies in the closed interval
// [From, To]. An inverted interval is emitted as written and matches
// nothing.
type Range struct {
	Key  string
	From any
	To   any
}

// MultipleValues matches against a list of values. With ConditionAnd the
// column must contain every value; with ConditionOr it must equal at least
// one of them.
type MultipleValues struct {
	Key       string
	Values    []any
	Condition Condition
}

// Selector is not a predicate: it requests a bounded batch of records
// grouped by the keyed column. WHERE builders skip it; see SelectorBatch.
type Selector struct {
	Key   string
	Value any
	Limit int
	Fetch []string
}

func (SingleValue) filter()    {}
func (Range) filter()          {}
func (MultipleValues) filter() {}
func (Selector) filter()       {}

// Selectors splits a filter set into the plain predicates and the selectors.
func Selectors(filters []Filter) (plain []Filter, selectors []Selector) {
	for _, f := range filters {
		if sel, ok := f.(Selector); ok {
			selectors = append(selectors, sel)
			continue
		}
		plain = append(plain, f)
	}
	return plain, selectors
}
