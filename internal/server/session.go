package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/sievelabs/sieve/internal/model"
	"github.com/sievelabs/sieve/internal/pkg/security"
	"github.com/sievelabs/sieve/internal/pkg/wire"
)

var (
	errNoHandshake = errors.New("first message must be a handshake")
	errBadToken    = errors.New("incorrect auth token")
	errMultiAuth   = errors.New("handshake sent more than once")
)

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if err := s.serveSession(ctx, conn); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("Session from %s ended: %v", conn.RemoteAddr(), err)
	}
}

// serveSession authenticates the connection, then answers requests and emits
// the periodic status feed. All writes happen on this goroutine; a helper
// goroutine only reads.
func (s *Server) serveSession(ctx context.Context, conn net.Conn) error {
	var hello wire.ClientMessage
	if err := wire.ReadMessage(conn, &hello); err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}
	if hello.Type != wire.TypeHandshake {
		s.reject(conn, errNoHandshake)
		return errNoHandshake
	}
	if !security.VerifyToken(s.cfg.TokenHash, hello.Token) {
		s.reject(conn, errBadToken)
		return errBadToken
	}
	if err := wire.WriteMessage(conn, wire.ServerMessage{Type: wire.TypeHandshakeOk}); err != nil {
		return fmt.Errorf("write handshake reply: %w", err)
	}

	requests := make(chan wire.ClientMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg wire.ClientMessage
			if err := wire.ReadMessage(conn, &msg); err != nil {
				readErr <- err
				return
			}
			select {
			case requests <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		case msg := <-requests:
			if err := s.handleRequest(conn, msg); err != nil {
				return err
			}
		case <-ticker.C:
			status := wire.ServerMessage{
				Type: wire.TypeStatus,
				Status: &wire.Status{
					FileName:      s.cfg.InputName,
					LinesIndexed:  s.store.TotalPushed(),
					IngestionRate: s.store.IngestionRate(),
				},
			}
			if err := wire.WriteMessage(conn, status); err != nil {
				return fmt.Errorf("write status feed: %w", err)
			}
		}
	}
}

func (s *Server) handleRequest(conn net.Conn, msg wire.ClientMessage) error {
	switch msg.Type {
	case wire.TypeHandshake:
		s.reject(conn, errMultiAuth)
		return errMultiAuth
	case wire.TypeListKeys:
		return s.writeKeyList(conn)
	case wire.TypeCreateIndex:
		method := model.NewIndexMethod(msg.Conditions)
		s.store.Register(method)
		log.Printf("Registered index %s for %s", method, conn.RemoteAddr())
		return s.writeKeyList(conn)
	default:
		// unknown request types drop only the request, not the session
		return s.reject(conn, fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (s *Server) writeKeyList(conn net.Conn) error {
	reply := wire.ServerMessage{Type: wire.TypeKeyList, Keys: s.store.ListIndices()}
	if err := wire.WriteMessage(conn, reply); err != nil {
		return fmt.Errorf("write key list: %w", err)
	}
	return nil
}

func (s *Server) reject(conn net.Conn, cause error) error {
	return wire.WriteMessage(conn, wire.ServerMessage{Type: wire.TypeError, Error: cause.Error()})
}
