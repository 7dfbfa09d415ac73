/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package ldapserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sapcc/go-bits/logg"
)

// Server owns the listening socket and the set of active connections. One
// goroutine per connection is the concurrency model (spec §5), matching
// the teacher's one-goroutine-per-unit-of-work worker idiom.
type Server struct {
	cfg      Config
	listener net.Listener

	wg       sync.WaitGroup
	mutex    sync.Mutex
	conns    map[*connection]struct{}
}

// NewServer constructs a Server bound to cfg. Listen must be called
// before Serve.
func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg, conns: make(map[*connection]struct{})}
}

// Listen opens the TCP listener on the given port (all interfaces).
func (s *Server) Listen(port int) error {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("cannot listen on LDAP port %d: %w", port, err)
	}
	s.listener = l
	logg.Info("ldap server listening on %s", l.Addr())
	return nil
}

// Serve accepts connections until ctx is cancelled, then stops accepting
// and waits for in-flight connections to finish their current operation
// before returning (spec §5 graceful shutdown).
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				// Interrupt blocked reads so that each connection returns
				// once the operation it is handling has been answered.
				s.mutex.Lock()
				for c := range s.conns {
					_ = c.conn.SetReadDeadline(time.Now())
				}
				s.mutex.Unlock()
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("accept failed: %w", err)
			}
		}
		s.handle(conn)
	}
}

func (s *Server) handle(netConn net.Conn) {
	c := &connection{conn: netConn, cfg: s.cfg}
	s.mutex.Lock()
	s.conns[c] = struct{}{}
	s.mutex.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mutex.Lock()
			delete(s.conns, c)
			s.mutex.Unlock()
		}()
		c.serve()
	}()
}
