/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package ldapserver

import (
	"net"
	"testing"
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"

	"github.com/veryCrunchy/ldaptoid/internal/directory"
	"github.com/veryCrunchy/ldaptoid/internal/snapshot"
	"github.com/veryCrunchy/ldaptoid/internal/wire"
)

type fixedSnapshotSource struct{ snap *directory.Snapshot }

func (s fixedSnapshotSource) Current() *directory.Snapshot { return s.snap }

func testSnapshot() *directory.Snapshot {
	snap := &directory.Snapshot{
		Users: []directory.User{
			{ID: "u1", Username: "alice", DisplayName: "Alice Anderson", UIDNumber: 10001, PrimaryGroupID: directory.PrimaryGroupSentinel},
		},
		Groups: []directory.Group{
			{ID: directory.PrimaryGroupSentinel, Name: directory.PrimaryGroupSentinel, GIDNumber: 20000},
		},
	}
	snap.Finalize()
	return snap
}

func encodeEnvelope(messageID int64, op *ber.Packet) []byte {
	envelope := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "LDAPMessage")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, messageID, "MessageID"))
	envelope.AppendChild(op)
	return envelope.Bytes()
}

func simpleBindOp(name, password string) *ber.Packet {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(wire.ApplicationBindRequest), nil, "BindRequest")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(3), "version"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, name, "name"))
	op.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 0, password, "simple"))
	return op
}

func searchAllUsersOp(baseDN string) *ber.Packet {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(wire.ApplicationSearchRequest), nil, "SearchRequest")
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, baseDN, "baseObject"))
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(2), "scope"))
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(0), "derefAliases"))
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(0), "sizeLimit"))
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(0), "timeLimit"))
	op.AppendChild(ber.Encode(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, false, "typesOnly"))

	present := ber.Encode(ber.ClassContext, ber.TypePrimitive, ber.Tag(wire.FilterPresent), "objectClass", "present")
	op.AppendChild(present)

	attrs := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "attributes")
	op.AppendChild(attrs)
	return op
}

func newTestConnection(t *testing.T, auth BindAuthenticator) (*connection, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	c := &connection{
		conn: serverConn,
		cfg: Config{
			BaseDN:    "dc=example,dc=com",
			SizeLimit: 1000,
			Auth:      auth,
			Snapshots: fixedSnapshotSource{snap: testSnapshot()},
		},
	}
	return c, clientConn
}

func TestAnonymousBindRejectedWhenDisabled(t *testing.T) {
	c, clientConn := newTestConnection(t, StaticAuthenticator{AllowAnon: false})
	defer clientConn.Close()
	go c.serve()

	_, err := clientConn.Write(encodeEnvelope(1, simpleBindOp("", "")))
	if err != nil {
		t.Fatalf("write: %s", err)
	}
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := wire.ReadMessage(clientConn)
	if err != nil {
		t.Fatalf("ReadMessage: %s", err)
	}
	if len(msg.Op.Children) == 0 {
		t.Fatalf("expected a BindResponse with a resultCode child")
	}
	code, _ := msg.Op.Children[0].Value.(int64)
	if uint8(code) != wire.ResultInsufficientAccessRights {
		t.Fatalf("expected insufficientAccessRights, got result code %d", code)
	}
}

func TestSearchWithoutBindIsRejectedWhenServiceAccountConfigured(t *testing.T) {
	auth := StaticAuthenticator{BindDN: "cn=svc,dc=example,dc=com", BindPassword: "s3cret", AllowAnon: false}
	c, clientConn := newTestConnection(t, auth)
	defer clientConn.Close()
	go c.serve()

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := clientConn.Write(encodeEnvelope(1, searchAllUsersOp("dc=example,dc=com"))); err != nil {
		t.Fatalf("write search: %s", err)
	}
	msg, err := wire.ReadMessage(clientConn)
	if err != nil {
		t.Fatalf("ReadMessage: %s", err)
	}
	if msg.AppTag != ber.Tag(wire.ApplicationSearchResultDone) {
		t.Fatalf("expected SearchResultDone, got apptag %d", msg.AppTag)
	}
	code, _ := msg.Op.Children[0].Value.(int64)
	if uint8(code) != wire.ResultInsufficientAccessRights {
		t.Fatalf("expected insufficientAccessRights, got result code %d", code)
	}
}

func TestBindThenSearchReturnsEntries(t *testing.T) {
	c, clientConn := newTestConnection(t, StaticAuthenticator{AllowAnon: true})
	defer clientConn.Close()
	go c.serve()

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := clientConn.Write(encodeEnvelope(1, simpleBindOp("", ""))); err != nil {
		t.Fatalf("write bind: %s", err)
	}
	if _, err := wire.ReadMessage(clientConn); err != nil {
		t.Fatalf("ReadMessage bind response: %s", err)
	}

	if _, err := clientConn.Write(encodeEnvelope(2, searchAllUsersOp("dc=example,dc=com"))); err != nil {
		t.Fatalf("write search: %s", err)
	}

	var entries int
	for {
		msg, err := wire.ReadMessage(clientConn)
		if err != nil {
			t.Fatalf("ReadMessage search: %s", err)
		}
		if msg.AppTag == ber.Tag(wire.ApplicationSearchResultDone) {
			break
		}
		entries++
	}
	if entries == 0 {
		t.Fatalf("expected at least one SearchResultEntry before SearchResultDone")
	}
}
