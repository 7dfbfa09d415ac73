/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package wire

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
	ldap "github.com/go-ldap/ldap/v3"
)

// FilterKind enumerates the Filter variants spec §4.1/§4.8 requires this
// core to decode and evaluate: the boolean combinators, equality,
// substrings, presence, and the two ordering operators. extensibleMatch
// is decoded only as its kind, without its matching rule or assertion;
// the evaluator treats it as never matching, and a search that uses it is
// answered normally rather than rejected.
type FilterKind int

const (
	FilterAnd FilterKind = iota
	FilterOr
	FilterNot
	FilterEquality
	FilterSubstrings
	FilterGreaterOrEqual
	FilterLessOrEqual
	FilterPresent
	FilterApproxMatch
	FilterExtensibleMatch
)

// SubstringKind marks which position within a substrings filter a segment
// occupies (RFC 4511 §4.5.1.7.2).
type SubstringKind int

const (
	SubInitial SubstringKind = iota
	SubAny
	SubFinal
)

// SubstringSegment is one piece of a FilterSubstrings filter.
type SubstringSegment struct {
	Kind  SubstringKind
	Value string
}

// Filter is the decoded LDAP search filter AST.
type Filter struct {
	Kind FilterKind

	// FilterAnd, FilterOr
	Children []Filter

	// FilterNot
	Child *Filter

	// FilterEquality, FilterGreaterOrEqual, FilterLessOrEqual, FilterApproxMatch
	Attribute string
	Value     string

	// FilterSubstrings
	SubAttribute string
	Substrings   []SubstringSegment

	// FilterPresent
	PresentAttribute string
}

// DecodeFilter parses the Filter CHOICE (RFC 4511 §4.5.1.7) rooted at
// packet, recursing into AND/OR/NOT as needed.
func DecodeFilter(packet *ber.Packet) (Filter, error) {
	switch ber.Tag(packet.Tag) {
	case ber.Tag(ldap.FilterAnd):
		return decodeFilterSet(packet, FilterAnd)
	case ber.Tag(ldap.FilterOr):
		return decodeFilterSet(packet, FilterOr)
	case ber.Tag(ldap.FilterNot):
		if len(packet.Children) != 1 {
			return Filter{}, fmt.Errorf("%w: not filter must have exactly one child", ErrProtocol)
		}
		inner, err := DecodeFilter(packet.Children[0])
		if err != nil {
			return Filter{}, err
		}
		return Filter{Kind: FilterNot, Child: &inner}, nil
	case ber.Tag(ldap.FilterEqualityMatch):
		attr, val, err := decodeAttributeValueAssertion(packet)
		return Filter{Kind: FilterEquality, Attribute: attr, Value: val}, err
	case ber.Tag(ldap.FilterGreaterOrEqual):
		attr, val, err := decodeAttributeValueAssertion(packet)
		return Filter{Kind: FilterGreaterOrEqual, Attribute: attr, Value: val}, err
	case ber.Tag(ldap.FilterLessOrEqual):
		attr, val, err := decodeAttributeValueAssertion(packet)
		return Filter{Kind: FilterLessOrEqual, Attribute: attr, Value: val}, err
	case ber.Tag(ldap.FilterApproxMatch):
		attr, val, err := decodeAttributeValueAssertion(packet)
		return Filter{Kind: FilterApproxMatch, Attribute: attr, Value: val}, err
	case ber.Tag(ldap.FilterPresent):
		return Filter{Kind: FilterPresent, PresentAttribute: packet.Data.String()}, nil
	case ber.Tag(ldap.FilterSubstrings):
		return decodeSubstrings(packet)
	case ber.Tag(ldap.FilterExtensibleMatch):
		return Filter{Kind: FilterExtensibleMatch}, nil
	default:
		return Filter{}, fmt.Errorf("%w: unsupported filter choice tag %d", ErrProtocol, packet.Tag)
	}
}

func decodeFilterSet(packet *ber.Packet, kind FilterKind) (Filter, error) {
	children := make([]Filter, 0, len(packet.Children))
	for _, child := range packet.Children {
		f, err := DecodeFilter(child)
		if err != nil {
			return Filter{}, err
		}
		children = append(children, f)
	}
	return Filter{Kind: kind, Children: children}, nil
}

func decodeAttributeValueAssertion(packet *ber.Packet) (attr, value string, err error) {
	if len(packet.Children) != 2 {
		return "", "", fmt.Errorf("%w: attribute value assertion must have 2 children", ErrProtocol)
	}
	return packet.Children[0].Data.String(), packet.Children[1].Data.String(), nil
}

func decodeSubstrings(packet *ber.Packet) (Filter, error) {
	if len(packet.Children) != 2 {
		return Filter{}, fmt.Errorf("%w: substrings filter must have 2 children", ErrProtocol)
	}
	attr := packet.Children[0].Data.String()
	var segments []SubstringSegment
	for _, seg := range packet.Children[1].Children {
		var kind SubstringKind
		switch seg.Tag {
		case 0:
			kind = SubInitial
		case 1:
			kind = SubAny
		case 2:
			kind = SubFinal
		default:
			return Filter{}, fmt.Errorf("%w: unknown substring segment tag %d", ErrProtocol, seg.Tag)
		}
		segments = append(segments, SubstringSegment{Kind: kind, Value: seg.Data.String()})
	}
	return Filter{Kind: FilterSubstrings, SubAttribute: attr, Substrings: segments}, nil
}
