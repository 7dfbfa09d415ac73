/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package wire implements the LDAPv3 BER codec (spec §4.1): framing
// messages off a byte stream, decoding the PDU subset this core accepts
// (BindRequest, UnbindRequest, SearchRequest), and encoding the PDUs it
// emits (BindResponse, SearchResultEntry, SearchResultDone). It is built
// directly on github.com/go-asn1-ber/asn1-ber, the BER primitive library
// that github.com/go-ldap/ldap/v3 itself is built on, and reuses that
// library's named result-code and filter-tag constants so that the wire
// values match an off-the-shelf LDAP client bit-for-bit.
package wire

import (
	"fmt"
	"io"

	ber "github.com/go-asn1-ber/asn1-ber"
	ldap "github.com/go-ldap/ldap/v3"
)

// Application tags for the PDUs this core recognizes (RFC 4511 §4.2).
const (
	ApplicationBindRequest    = ldap.ApplicationBindRequest
	ApplicationBindResponse   = ldap.ApplicationBindResponse
	ApplicationUnbindRequest  = ldap.ApplicationUnbindRequest
	ApplicationSearchRequest  = ldap.ApplicationSearchRequest
	ApplicationSearchResultEntry = ldap.ApplicationSearchResultEntry
	ApplicationSearchResultDone  = ldap.ApplicationSearchResultDone
)

// PagedResultsControlOID is the Simple Paged Results control OID
// recognized by spec §4.1.
const PagedResultsControlOID = "1.2.840.113556.1.4.319"

// Message is one decoded LDAPMessage envelope: a message id plus one
// application-tagged protocol operation packet. Controls, if present, are
// kept as raw child packets for the handful this core understands
// (paged results) to inspect.
type Message struct {
	MessageID  int64
	Op         *ber.Packet // the application-tagged protocolOp packet
	AppTag     ber.Tag
	Controls   []*ber.Packet
}

// ReadMessage decodes exactly one LDAPMessage off r. Because
// ber.ReadPacket performs its own length-prefixed reads against r, a short
// read on a blocking connection simply blocks for more bytes rather than
// returning a usable partial packet — which is the behavior spec §4.1
// asks for ("return incomplete, need more bytes, without consuming input
// when the buffer is short"). io.EOF is returned verbatim so callers can
// distinguish a clean disconnect from a decode error.
func ReadMessage(r io.Reader) (*Message, error) {
	envelope, err := ber.ReadPacket(r)
	if err != nil {
		return nil, err
	}
	if len(envelope.Children) < 2 {
		return nil, fmt.Errorf("%w: LDAPMessage envelope has %d children, want at least 2", ErrProtocol, len(envelope.Children))
	}

	msgIDPacket := envelope.Children[0]
	msgID, ok := msgIDPacket.Value.(int64)
	if !ok {
		return nil, fmt.Errorf("%w: messageID is not an INTEGER", ErrProtocol)
	}

	opPacket := envelope.Children[1]

	var controls []*ber.Packet
	if len(envelope.Children) >= 3 {
		// controls [0] Controls OPTIONAL; tagged CONTEXT 0, constructed.
		ctrlWrapper := envelope.Children[2]
		controls = ctrlWrapper.Children
	}

	return &Message{
		MessageID: msgID,
		Op:        opPacket,
		AppTag:    opPacket.Tag,
		Controls:  controls,
	}, nil
}

// ErrProtocol is wrapped by decode errors that should be reported to the
// client as LDAP protocolError (spec §7) rather than silently dropped.
var ErrProtocol = fmt.Errorf("ldap protocol error")

// WriteMessage encodes and writes a full LDAPMessage (messageID + a single
// already-built protocolOp packet) to w.
func WriteMessage(w io.Writer, messageID int64, op *ber.Packet, controls *ber.Packet) error {
	envelope := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "LDAPMessage")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, messageID, "MessageID"))
	envelope.AppendChild(op)
	if controls != nil {
		envelope.AppendChild(controls)
	}
	_, err := w.Write(envelope.Bytes())
	return err
}
