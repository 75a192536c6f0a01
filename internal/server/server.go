// Package server exposes the store to remote clients over a token-gated,
// length-prefixed message protocol on TCP, optionally wrapped in TLS.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/sievelabs/sieve/internal/store"
)

// Config controls the listener and session behavior.
type Config struct {
	// Addr is the TCP address to listen on.
	Addr string

	// TLS enables serving over TLS using CertFile and KeyFile.
	TLS      bool
	CertFile string
	KeyFile  string

	// TokenHash is the bcrypt hash of the shared-secret auth token.
	TokenHash []byte

	// InputName is reported to clients in the status feed.
	InputName string
	// StatusInterval is the cadence of the status feed. Defaults to 5s.
	StatusInterval time.Duration
}

// Server accepts client connections and serves query sessions against the
// store.
type Server struct {
	cfg   Config
	store *store.Store

	mu sync.Mutex
	ln net.Listener
}

// New validates cfg and creates a server.
func New(cfg Config, st *store.Store) (*Server, error) {
	if cfg.TLS && (cfg.CertFile == "" || cfg.KeyFile == "") {
		return nil, errors.New("TLS requires both a certificate and a key file")
	}
	if len(cfg.TokenHash) == 0 {
		return nil, errors.New("auth token hash is required")
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 5 * time.Second
	}
	return &Server{cfg: cfg, store: st}, nil
}

// Run listens and serves until ctx is cancelled. Each connection is handled
// on its own goroutine.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Addr, err)
	}
	if s.cfg.TLS {
		cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			ln.Close()
			return fmt.Errorf("load TLS key pair: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Printf("Listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Error accepting client: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// Addr returns the bound listener address, or nil if the server is not
// listening yet.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}
