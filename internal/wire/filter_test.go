/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package wire

import (
	"testing"

	ber "github.com/go-asn1-ber/asn1-ber"
)

func equalityPacket(attr, value string) *ber.Packet {
	p := ber.Encode(ber.ClassContext, ber.TypeConstructed, ber.Tag(FilterEquality), nil, "equalityMatch")
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, attr, "attr"))
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, value, "value"))
	return p
}

func TestDecodeFilterEquality(t *testing.T) {
	p := equalityPacket("uid", "alice")
	f, err := DecodeFilter(p)
	if err != nil {
		t.Fatalf("DecodeFilter: %s", err)
	}
	if f.Kind != FilterEquality || f.Attribute != "uid" || f.Value != "alice" {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestDecodeFilterAndOfTwoEqualities(t *testing.T) {
	and := ber.Encode(ber.ClassContext, ber.TypeConstructed, ber.Tag(FilterAnd), nil, "and")
	and.AppendChild(equalityPacket("uid", "alice"))
	and.AppendChild(equalityPacket("objectClass", "posixAccount"))

	f, err := DecodeFilter(and)
	if err != nil {
		t.Fatalf("DecodeFilter: %s", err)
	}
	if f.Kind != FilterAnd || len(f.Children) != 2 {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestDecodeFilterPresent(t *testing.T) {
	p := ber.Encode(ber.ClassContext, ber.TypePrimitive, ber.Tag(FilterPresent), "objectClass", "present")
	f, err := DecodeFilter(p)
	if err != nil {
		t.Fatalf("DecodeFilter: %s", err)
	}
	if f.Kind != FilterPresent || f.PresentAttribute != "objectClass" {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestEncodeSearchResultEntryIsDeterministic(t *testing.T) {
	attrs := map[string][]string{
		"cn":          {"alice"},
		"objectClass": {"posixAccount", "top"},
	}
	a := EncodeSearchResultEntry("uid=alice,ou=users,dc=example,dc=com", attrs).Bytes()
	b := EncodeSearchResultEntry("uid=alice,ou=users,dc=example,dc=com", attrs).Bytes()
	if len(a) == 0 || string(a) != string(b) {
		t.Fatalf("expected stable encoding across calls")
	}
}
