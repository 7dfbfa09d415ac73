/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package search

import (
	"testing"

	"github.com/veryCrunchy/ldaptoid/internal/wire"
)

func TestEvaluateEquality(t *testing.T) {
	attrs := map[string][]string{"uid": {"alice"}}
	f := wire.Filter{Kind: wire.FilterEquality, Attribute: "UID", Value: "Alice"}
	if !Evaluate(f, attrs) {
		t.Fatalf("expected case-insensitive equality match")
	}
}

func TestEvaluateAndOr(t *testing.T) {
	attrs := map[string][]string{"objectClass": {"posixAccount"}, "uid": {"alice"}}
	and := wire.Filter{Kind: wire.FilterAnd, Children: []wire.Filter{
		{Kind: wire.FilterEquality, Attribute: "objectClass", Value: "posixAccount"},
		{Kind: wire.FilterEquality, Attribute: "uid", Value: "alice"},
	}}
	if !Evaluate(and, attrs) {
		t.Fatalf("expected AND to match")
	}

	or := wire.Filter{Kind: wire.FilterOr, Children: []wire.Filter{
		{Kind: wire.FilterEquality, Attribute: "uid", Value: "bob"},
		{Kind: wire.FilterEquality, Attribute: "uid", Value: "alice"},
	}}
	if !Evaluate(or, attrs) {
		t.Fatalf("expected OR to match")
	}
}

func TestEvaluateNot(t *testing.T) {
	attrs := map[string][]string{"uid": {"alice"}}
	inner := wire.Filter{Kind: wire.FilterEquality, Attribute: "uid", Value: "bob"}
	not := wire.Filter{Kind: wire.FilterNot, Child: &inner}
	if !Evaluate(not, attrs) {
		t.Fatalf("expected NOT(uid=bob) to match when uid=alice")
	}
}

func TestEvaluatePresent(t *testing.T) {
	attrs := map[string][]string{"mail": {"alice@example.com"}}
	if !Evaluate(wire.Filter{Kind: wire.FilterPresent, PresentAttribute: "mail"}, attrs) {
		t.Fatalf("expected present(mail) to match")
	}
	if Evaluate(wire.Filter{Kind: wire.FilterPresent, PresentAttribute: "telephoneNumber"}, attrs) {
		t.Fatalf("expected present(telephoneNumber) not to match")
	}
}

func TestEvaluateSubstrings(t *testing.T) {
	attrs := map[string][]string{"cn": {"Alice Anderson"}}
	f := wire.Filter{Kind: wire.FilterSubstrings, SubAttribute: "cn", Substrings: []wire.SubstringSegment{
		{Kind: wire.SubInitial, Value: "Ali"},
		{Kind: wire.SubAny, Value: "e A"},
		{Kind: wire.SubFinal, Value: "son"},
	}}
	if !Evaluate(f, attrs) {
		t.Fatalf("expected substrings filter to match")
	}
}

func TestEvaluateOrderingOperators(t *testing.T) {
	attrs := map[string][]string{"uidNumber": {"10050"}}
	if !Evaluate(wire.Filter{Kind: wire.FilterGreaterOrEqual, Attribute: "uidNumber", Value: "10000"}, attrs) {
		t.Fatalf("expected 10050 >= 10000")
	}
	if Evaluate(wire.Filter{Kind: wire.FilterLessOrEqual, Attribute: "uidNumber", Value: "10000"}, attrs) {
		t.Fatalf("expected 10050 not <= 10000 under lexical comparison of equal-length numerics")
	}
}

func TestEvaluateExtensibleMatchNeverMatches(t *testing.T) {
	attrs := map[string][]string{"uid": {"alice"}}
	if Evaluate(wire.Filter{Kind: wire.FilterExtensibleMatch}, attrs) {
		t.Fatalf("expected extensibleMatch to never match")
	}
}
