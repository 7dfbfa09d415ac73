/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package wire

import (
	"sort"

	ber "github.com/go-asn1-ber/asn1-ber"
	ldap "github.com/go-ldap/ldap/v3"
)

// LDAP result codes of the error taxonomy (spec §7). Re-exported from
// go-ldap/v3 rather than redeclared, so a value compared against a real
// ldap.Error from a client-side integration test lines up without a cast.
// operationsError, timeLimitExceeded, unwillingToPerform and
// unavailableCriticalExtension are declared here but not returned by the
// connection layer.
const (
	ResultSuccess                     = ldap.LDAPResultSuccess
	ResultOperationsError             = ldap.LDAPResultOperationsError
	ResultProtocolError               = ldap.LDAPResultProtocolError
	ResultTimeLimitExceeded           = ldap.LDAPResultTimeLimitExceeded
	ResultSizeLimitExceeded           = ldap.LDAPResultSizeLimitExceeded
	ResultAuthMethodNotSupported      = ldap.LDAPResultAuthMethodNotSupported
	ResultInvalidCredentials          = ldap.LDAPResultInvalidCredentials
	ResultInsufficientAccessRights    = ldap.LDAPResultInsufficientAccessRights
	ResultUnavailable                 = ldap.LDAPResultUnavailable
	ResultUnwillingToPerform          = ldap.LDAPResultUnwillingToPerform
	ResultUnavailableCriticalExtension = ldap.LDAPResultUnavailableCriticalExtension
	ResultNoSuchObject                = ldap.LDAPResultNoSuchObject
)

func encodeLDAPResult(appTag ber.Tag, resultCode uint8, matchedDN, diagnosticMessage string) *ber.Packet {
	p := ber.Encode(ber.ClassApplication, ber.TypeConstructed, appTag, nil, "LDAPResult")
	p.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(resultCode), "resultCode"))
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, matchedDN, "matchedDN"))
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, diagnosticMessage, "diagnosticMessage"))
	return p
}

// EncodeBindResponse builds a BindResponse (RFC 4511 §4.2.2).
func EncodeBindResponse(resultCode uint8, diagnosticMessage string) *ber.Packet {
	return encodeLDAPResult(ber.Tag(ApplicationBindResponse), resultCode, "", diagnosticMessage)
}

// EncodeSearchResultDone builds a SearchResultDone (RFC 4511 §4.5.2).
func EncodeSearchResultDone(resultCode uint8, diagnosticMessage string) *ber.Packet {
	return encodeLDAPResult(ber.Tag(ApplicationSearchResultDone), resultCode, "", diagnosticMessage)
}

// EncodeSearchResultEntry builds one SearchResultEntry (RFC 4511 §4.5.2)
// for dn with the given attributes. Attribute and value ordering is
// sorted for determinism — this core's entries are synthesized, not
// stored, so there is no natural insertion order to preserve.
func EncodeSearchResultEntry(dn string, attrs map[string][]string) *ber.Packet {
	entry := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(ApplicationSearchResultEntry), nil, "SearchResultEntry")
	entry.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, dn, "objectName"))

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	attrList := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "PartialAttributeList")
	for _, name := range names {
		values := append([]string(nil), attrs[name]...)
		sort.Strings(values)

		attrPacket := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "PartialAttribute")
		attrPacket.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, name, "type"))
		valsPacket := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSet, nil, "vals")
		for _, v := range values {
			valsPacket.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, v, "value"))
		}
		attrPacket.AppendChild(valsPacket)
		attrList.AppendChild(attrPacket)
	}
	entry.AppendChild(attrList)
	return entry
}

// EncodePagedResultsControl builds the response Controls wrapper carrying
// a Simple Paged Results control (RFC 2696 §2) with the given cookie. An
// empty cookie tells the client there are no further pages.
func EncodePagedResultsControl(cookie []byte) *ber.Packet {
	value := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "realSearchControlValue")
	value.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(0), "size"))
	value.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, string(cookie), "cookie"))

	control := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "Control")
	control.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, PagedResultsControlOID, "controlType"))
	control.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, string(value.Bytes()), "controlValue"))

	wrapper := ber.Encode(ber.ClassContext, ber.TypeConstructed, 0, nil, "Controls")
	wrapper.AppendChild(control)
	return wrapper
}
