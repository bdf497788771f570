// Package keyword evaluates ordered (predicate, result) rule tables against free text.
package keyword

import "strings"

// Matcher receives the lower-cased input.
type Matcher func(lower string) bool

type Rule[T any] struct {
	Match  Matcher
	Result T
}

// First returns the result of the first rule whose matcher accepts the input.
func First[T any](rules []Rule[T], input string) (T, bool) {
	lower := strings.ToLower(input)
	for _, r := range rules {
		if r.Match != nil && r.Match(lower) {
			return r.Result, true
		}
	}
	var zero T
	return zero, false
}

// Any matches when the input contains at least one of the keys.
func Any(keys ...string) Matcher {
	return func(lower string) bool {
		for _, k := range keys {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}
}
