/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package ldapserver

import (
	"context"
	"net"
	"testing"
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"

	"github.com/veryCrunchy/ldaptoid/internal/wire"
)

func TestServeAcceptsConnectionsAndShutsDownOnCancel(t *testing.T) {
	s := NewServer(Config{
		BaseDN:    "dc=example,dc=com",
		SizeLimit: 1000,
		Auth:      StaticAuthenticator{AllowAnon: true},
		Snapshots: fixedSnapshotSource{snap: testSnapshot()},
	})
	if err := s.Listen(0); err != nil {
		t.Fatalf("Listen: %s", err)
	}
	addr := s.listener.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	envelope := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "LDAPMessage")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(1), "MessageID"))
	envelope.AppendChild(simpleBindOp("", ""))
	if _, err := conn.Write(envelope.Bytes()); err != nil {
		t.Fatalf("write bind: %s", err)
	}
	if _, err := wire.ReadMessage(conn); err != nil {
		t.Fatalf("ReadMessage bind response: %s", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error after cancel: %s", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return after context cancellation")
	}
}
