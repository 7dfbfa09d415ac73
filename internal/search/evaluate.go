/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package search implements the filter evaluator and search executor
// described in spec §4.8 and §4.9: deciding whether a synthesized entry
// matches a decoded Filter AST, and walking the directory tree to collect
// the matching entries for one SearchRequest.
package search

import (
	"strings"

	"github.com/veryCrunchy/ldaptoid/internal/wire"
)

// Evaluate reports whether attrs (a case-insensitive attribute-name to
// values map, as built by the executor's userAttributes, groupAttributes
// and the other candidate constructors) satisfies
// filter. Matching is case-insensitive throughout, mirroring the
// directory's own attribute comparisons (spec §4.8).
func Evaluate(filter wire.Filter, attrs map[string][]string) bool {
	switch filter.Kind {
	case wire.FilterAnd:
		for _, child := range filter.Children {
			if !Evaluate(child, attrs) {
				return false
			}
		}
		return true
	case wire.FilterOr:
		for _, child := range filter.Children {
			if Evaluate(child, attrs) {
				return true
			}
		}
		return false
	case wire.FilterNot:
		if filter.Child == nil {
			return false
		}
		return !Evaluate(*filter.Child, attrs)
	case wire.FilterPresent:
		_, ok := lookup(attrs, filter.PresentAttribute)
		return ok
	case wire.FilterEquality:
		values, ok := lookup(attrs, filter.Attribute)
		if !ok {
			return false
		}
		return containsFold(values, filter.Value)
	case wire.FilterApproxMatch:
		// No phonetic matching backend is wired; approxMatch degrades to
		// equality, which is a conservative legal interpretation of RFC
		// 4511 §4.5.1.7.6 ("a server ... may also treat approxMatch as
		// equalityMatch if it does not support one").
		values, ok := lookup(attrs, filter.Attribute)
		if !ok {
			return false
		}
		return containsFold(values, filter.Value)
	case wire.FilterGreaterOrEqual:
		values, ok := lookup(attrs, filter.Attribute)
		if !ok {
			return false
		}
		return anyOrdered(values, filter.Value, func(a, b string) bool { return a >= b })
	case wire.FilterLessOrEqual:
		values, ok := lookup(attrs, filter.Attribute)
		if !ok {
			return false
		}
		return anyOrdered(values, filter.Value, func(a, b string) bool { return a <= b })
	case wire.FilterSubstrings:
		values, ok := lookup(attrs, filter.SubAttribute)
		if !ok {
			return false
		}
		return anySubstringMatch(values, filter.Substrings)
	case wire.FilterExtensibleMatch:
		// Unsupported (spec §4.8 edge case): an extensibleMatch filter
		// never matches, rather than erroring the whole search.
		return false
	default:
		return false
	}
}

func lookup(attrs map[string][]string, name string) ([]string, bool) {
	lower := strings.ToLower(name)
	for k, v := range attrs {
		if strings.ToLower(k) == lower {
			return v, len(v) > 0
		}
	}
	return nil, false
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func anyOrdered(values []string, want string, cmp func(a, b string) bool) bool {
	lowerWant := strings.ToLower(want)
	for _, v := range values {
		if cmp(strings.ToLower(v), lowerWant) {
			return true
		}
	}
	return false
}

func anySubstringMatch(values []string, segments []wire.SubstringSegment) bool {
	for _, v := range values {
		if substringMatch(strings.ToLower(v), segments) {
			return true
		}
	}
	return false
}

func substringMatch(value string, segments []wire.SubstringSegment) bool {
	pos := 0
	for i, seg := range segments {
		needle := strings.ToLower(seg.Value)
		switch seg.Kind {
		case wire.SubInitial:
			if !strings.HasPrefix(value, needle) {
				return false
			}
			pos = len(needle)
		case wire.SubFinal:
			if !strings.HasSuffix(value[pos:], needle) {
				return false
			}
		case wire.SubAny:
			idx := strings.Index(value[pos:], needle)
			if idx == -1 {
				return false
			}
			pos += idx + len(needle)
		}
		_ = i
	}
	return true
}
