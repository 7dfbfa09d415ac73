/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package ldapserver is the connection-level protocol engine (spec §4.10):
// the accept loop, the per-connection Unauthenticated/Bound/Closing state
// machine, and the Bind/Search/Unbind dispatch table. It reads framed
// messages off the wire package and renders results back through it,
// evaluating searches against whatever directory.Snapshot the Server's
// SnapshotSource currently publishes.
package ldapserver

import (
	"errors"
	"fmt"
	"io"
	"net"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/sapcc/go-bits/logg"

	"github.com/veryCrunchy/ldaptoid/internal/directory"
	"github.com/veryCrunchy/ldaptoid/internal/search"
	"github.com/veryCrunchy/ldaptoid/internal/wire"
)

// state is the per-connection authentication state (spec §4.10).
type state int

const (
	stateUnauthenticated state = iota
	stateBound
	stateClosing
)

// SnapshotSource hands back whatever directory.Snapshot is current. It is
// implemented by the snapshot package's atomic publication pointer.
type SnapshotSource interface {
	Current() *directory.Snapshot
}

// BindAuthenticator validates a simple bind's credentials against the
// configured service-bind DN/password (spec §4.10); anonymous bind, if
// allowed, never reaches this.
type BindAuthenticator interface {
	Authenticate(dn, password string) bool
	AllowAnonymous() bool
	HasServiceAccount() bool
}

// Config bundles the fixed, per-connection-independent settings that the
// dispatch table needs.
type Config struct {
	BaseDN        string
	SizeLimit     int
	Auth          BindAuthenticator
	Snapshots     SnapshotSource
}

// connection is one accepted TCP client. Its lifetime and state machine
// are entirely private to its own goroutine; no connection state is ever
// shared across goroutines.
type connection struct {
	conn   net.Conn
	cfg    Config
	state  state
	bindDN string
}

// Serve runs the per-connection read/dispatch/write loop until the client
// disconnects, sends UnbindRequest, or a framing error forces the
// connection closed. It never returns an error to the caller: all
// failures are either reported to the client as a protocol error response
// or are silent disconnects (spec §4.10 edge cases).
func (c *connection) serve() {
	defer c.conn.Close()
	for c.state != stateClosing {
		msg, err := wire.ReadMessage(c.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logg.Debug("ldap connection %s: read error: %s", c.conn.RemoteAddr(), err)
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *connection) dispatch(msg *wire.Message) {
	switch msg.AppTag {
	case ber.Tag(wire.ApplicationBindRequest):
		c.handleBind(msg)
	case ber.Tag(wire.ApplicationUnbindRequest):
		c.state = stateClosing
	case ber.Tag(wire.ApplicationSearchRequest):
		c.handleSearch(msg)
	default:
		c.writeResult(msg.MessageID, ber.Tag(wire.ApplicationSearchResultDone),
			wire.ResultProtocolError, fmt.Sprintf("unsupported operation tag %d", msg.AppTag))
	}
}

func (c *connection) handleBind(msg *wire.Message) {
	req, err := wire.DecodeBindRequest(msg.Op)
	if err != nil {
		c.respondBind(msg.MessageID, wire.ResultProtocolError, "malformed BindRequest")
		return
	}
	if req.IsSASL {
		c.respondBind(msg.MessageID, wire.ResultAuthMethodNotSupported, "only simple bind is supported")
		return
	}
	if req.Name == "" && req.Simple == "" {
		if !c.cfg.Auth.AllowAnonymous() {
			c.respondBind(msg.MessageID, wire.ResultInsufficientAccessRights, "anonymous bind is disabled")
			return
		}
		c.state = stateUnauthenticated
		c.respondBind(msg.MessageID, wire.ResultSuccess, "")
		return
	}
	if !c.cfg.Auth.Authenticate(req.Name, req.Simple) {
		c.respondBind(msg.MessageID, wire.ResultInvalidCredentials, "invalid credentials")
		return
	}
	c.state = stateBound
	c.bindDN = req.Name
	c.respondBind(msg.MessageID, wire.ResultSuccess, "")
}

func (c *connection) respondBind(messageID int64, code uint8, diag string) {
	op := wire.EncodeBindResponse(code, diag)
	if err := wire.WriteMessage(c.conn, messageID, op, nil); err != nil {
		logg.Debug("ldap connection %s: write error: %s", c.conn.RemoteAddr(), err)
		c.state = stateClosing
	}
}

func (c *connection) handleSearch(msg *wire.Message) {
	// C10 authorization gate (spec §4.10): Search is only allowed once
	// bound, unless anonymous access is allowed or no service account is
	// configured at all (in which case there is nothing to bind against).
	if c.state != stateBound && !c.cfg.Auth.AllowAnonymous() && c.cfg.Auth.HasServiceAccount() {
		c.writeResult(msg.MessageID, ber.Tag(wire.ApplicationSearchResultDone), wire.ResultInsufficientAccessRights, "bind required")
		return
	}

	req, err := wire.DecodeSearchRequest(msg.Op)
	if err != nil {
		c.writeResult(msg.MessageID, ber.Tag(wire.ApplicationSearchResultDone), wire.ResultProtocolError, "malformed SearchRequest")
		return
	}

	snap := c.cfg.Snapshots.Current()
	if snap == nil {
		c.writeResult(msg.MessageID, ber.Tag(wire.ApplicationSearchResultDone), wire.ResultUnavailable, "directory not yet initialized")
		return
	}

	// The Simple Paged Results control is acknowledged for client
	// compatibility but not actually paged by this core (spec glossary):
	// a malformed control is still rejected, but whether paging was
	// requested never changes how many entries are returned — only
	// whether the response control is echoed back, always with an empty
	// cookie signaling no further pages.
	_, _, paged, err := wire.DecodePagedResultsControl(msg.Controls)
	if err != nil {
		c.writeResult(msg.MessageID, ber.Tag(wire.ApplicationSearchResultDone), wire.ResultProtocolError, "malformed paged results control")
		return
	}

	sizeLimit := c.cfg.SizeLimit
	if req.SizeLimit > 0 && int(req.SizeLimit) < sizeLimit {
		sizeLimit = int(req.SizeLimit)
	}

	result, err := search.Execute(snap, c.cfg.BaseDN, search.Request{
		BaseDN:     req.BaseObject,
		Scope:      req.Scope,
		Filter:     req.Filter,
		Attributes: req.Attributes,
		TypesOnly:  req.TypesOnly,
		SizeLimit:  sizeLimit,
	})
	if err != nil {
		c.writeResult(msg.MessageID, ber.Tag(wire.ApplicationSearchResultDone), wire.ResultNoSuchObject, err.Error())
		return
	}

	for _, entry := range result.Entries {
		op := wire.EncodeSearchResultEntry(entry.DN, entry.Attributes)
		if err := wire.WriteMessage(c.conn, msg.MessageID, op, nil); err != nil {
			c.state = stateClosing
			return
		}
	}

	var controls *ber.Packet
	if paged {
		controls = wire.EncodePagedResultsControl([]byte{})
	}

	code := wire.ResultSuccess
	diag := ""
	if result.Truncated {
		code = wire.ResultSizeLimitExceeded
	}
	op := wire.EncodeSearchResultDone(code, diag)
	if err := wire.WriteMessage(c.conn, msg.MessageID, op, controls); err != nil {
		c.state = stateClosing
	}
}

func (c *connection) writeResult(messageID int64, appTag ber.Tag, code uint8, diag string) {
	var op *ber.Packet
	switch appTag {
	case ber.Tag(wire.ApplicationBindResponse):
		op = wire.EncodeBindResponse(code, diag)
	default:
		op = wire.EncodeSearchResultDone(code, diag)
	}
	if err := wire.WriteMessage(c.conn, messageID, op, nil); err != nil {
		c.state = stateClosing
	}
}
