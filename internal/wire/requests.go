/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package wire

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// Scope mirrors RFC 4511 §4.5.1.2's SearchRequest.scope ENUMERATED.
type Scope int

const (
	ScopeBaseObject   Scope = 0
	ScopeSingleLevel  Scope = 1
	ScopeWholeSubtree Scope = 2
)

// BindRequest is the decoded subset of RFC 4511 §4.2's BindRequest this
// core accepts: the protocol version (decoded but not checked), the name,
// and the simple (possibly anonymous)
// authentication choice. SASL mechanisms are out of scope (spec §1
// Non-goals) and are reported back as authMethodNotSupported.
type BindRequest struct {
	Version int64
	Name    string
	Simple  string
	IsSASL  bool
}

// DecodeBindRequest decodes a BindRequest protocolOp packet.
func DecodeBindRequest(op *ber.Packet) (BindRequest, error) {
	if len(op.Children) < 3 {
		return BindRequest{}, fmt.Errorf("%w: BindRequest needs 3 children, got %d", ErrProtocol, len(op.Children))
	}
	version, ok := op.Children[0].Value.(int64)
	if !ok {
		return BindRequest{}, fmt.Errorf("%w: BindRequest.version is not an INTEGER", ErrProtocol)
	}
	name := op.Children[1].Data.String()

	auth := op.Children[2]
	req := BindRequest{Version: version, Name: name}
	switch auth.Tag {
	case 0: // simple [0] OCTET STRING
		req.Simple = auth.Data.String()
	default:
		req.IsSASL = true
	}
	return req, nil
}

// SearchRequest is the decoded SearchRequest (RFC 4511 §4.5.1).
type SearchRequest struct {
	BaseObject   string
	Scope        Scope
	DerefAliases int64
	SizeLimit    int64
	TimeLimit    int64
	TypesOnly    bool
	Filter       Filter
	Attributes   []string
}

// DecodeSearchRequest decodes a SearchRequest protocolOp packet.
func DecodeSearchRequest(op *ber.Packet) (SearchRequest, error) {
	if len(op.Children) < 8 {
		return SearchRequest{}, fmt.Errorf("%w: SearchRequest needs 8 children, got %d", ErrProtocol, len(op.Children))
	}

	scope, ok := op.Children[1].Value.(int64)
	if !ok {
		return SearchRequest{}, fmt.Errorf("%w: SearchRequest.scope is not an ENUMERATED", ErrProtocol)
	}
	derefAliases, _ := op.Children[2].Value.(int64)
	sizeLimit, _ := op.Children[3].Value.(int64)
	timeLimit, _ := op.Children[4].Value.(int64)
	typesOnly, _ := op.Children[5].Value.(bool)

	filter, err := DecodeFilter(op.Children[6])
	if err != nil {
		return SearchRequest{}, err
	}

	var attrs []string
	for _, child := range op.Children[7].Children {
		attrs = append(attrs, child.Data.String())
	}

	return SearchRequest{
		BaseObject:   op.Children[0].Data.String(),
		Scope:        Scope(scope),
		DerefAliases: derefAliases,
		SizeLimit:    sizeLimit,
		TimeLimit:    timeLimit,
		TypesOnly:    typesOnly,
		Filter:       filter,
		Attributes:   attrs,
	}, nil
}

// DecodePagedResultsControl decodes the Simple Paged Results control value
// (RFC 2696 §2) if present among msg.Controls. ok is false when no control
// with PagedResultsControlOID is present.
func DecodePagedResultsControl(controls []*ber.Packet) (size int64, cookie []byte, ok bool, err error) {
	for _, ctrl := range controls {
		if len(ctrl.Children) < 1 {
			continue
		}
		oid := ctrl.Children[0].Data.String()
		if oid != PagedResultsControlOID {
			continue
		}
		// ControlValue is an OCTET STRING wrapping its own BER SEQUENCE.
		var valuePacket *ber.Packet
		for _, c := range ctrl.Children[1:] {
			if c.Tag == ber.TagOctetString || c.Tag == ber.TagBoolean {
				if c.Tag == ber.TagOctetString && c.Description != "Criticality" {
					valuePacket = c
				}
			}
		}
		if valuePacket == nil {
			return 0, nil, false, fmt.Errorf("%w: paged results control missing value", ErrProtocol)
		}
		inner := ber.DecodePacket(valuePacket.ByteValue)
		if len(inner.Children) < 2 {
			return 0, nil, false, fmt.Errorf("%w: paged results control value malformed", ErrProtocol)
		}
		pageSize, _ := inner.Children[0].Value.(int64)
		return pageSize, inner.Children[1].ByteValue, true, nil
	}
	return 0, nil, false, nil
}
