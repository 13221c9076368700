// Package server implements the TCP listener and per-connection worker
// loop, using a two-WaitGroup drain pattern for graceful shutdown and
// RESP framing over raw TCP.
package server

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"knox/dispatch"
	"knox/keyspace"
	"knox/log"
	"knox/pubsub"
	"knox/resp"
)

// DefaultPort is the default listening port.
const DefaultPort = 8520

// DefaultMaxConns is the default concurrent connection cap.
const DefaultMaxConns = 100

// Config configures a Server.
type Config struct {
	Host     string
	Port     int
	MaxConns int
	Version  string
}

// Server owns the listener, the keyspace, the pub/sub registry, and the
// dispatcher built on top of them.
type Server struct {
	cfg        Config
	listener   net.Listener
	store      *keyspace.Store
	pubsub     *pubsub.Registry
	dispatcher *dispatch.Dispatcher
	stats      *Stats

	nextConnID int64

	connSlots chan struct{}

	stopCh    chan struct{}
	stopOnce  sync.Once
	serviceWg sync.WaitGroup
	handlerWg sync.WaitGroup
}

// New constructs a Server wired to its own fresh keyspace and pub/sub
// registry. startedAt is a unix-seconds timestamp stored on the dispatcher
// as Dispatcher.StartedAt; INFO does not report it.
func New(cfg Config, startedAt int64) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	store := keyspace.New()
	ps := pubsub.New()
	stats := &Stats{}
	d := dispatch.New(store, ps, stats, cfg.Version, cfg.Port, startedAt)

	return &Server{
		cfg:        cfg,
		store:      store,
		pubsub:     ps,
		dispatcher: d,
		stats:      stats,
		connSlots:  make(chan struct{}, cfg.MaxConns),
		stopCh:     make(chan struct{}),
	}
}

// Store exposes the keyspace, e.g. so main can preload a snapshot before
// the accept loop starts.
func (s *Server) Store() *keyspace.Store { return s.store }

// RunSweeper starts the background expiry sweep and stops it when
// Shutdown is called. Observable behavior matches lazy expiration alone;
// this only reclaims memory for keys nobody reads again.
func (s *Server) RunSweeper(interval time.Duration) {
	s.serviceWg.Add(1)
	go func() {
		defer s.serviceWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.store.CollectExpired(); n > 0 {
					log.Debugf("sweeper collected %d expired keys", n)
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// ListenAndServe binds the listener and runs the accept loop until
// Shutdown is called or accepting fails.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln

	log.Infof("knox listening at %s", addr)

	return s.Serve(ln)
}

// Serve runs the accept loop against an already-bound listener, so tests
// can hand it a listener bound to an OS-assigned port. ListenAndServe is
// the production entry point; Serve is its reusable core.
func (s *Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return nil
			default:
				return err
			}
		}

		select {
		case s.connSlots <- struct{}{}:
			s.stats.addConnection()
			s.handlerWg.Add(1)
			go s.handle(c)
		default:
			c.Write(resp.EncodeError("ERR Server busy, too many connections"))
			c.Close()
		}
	}
}

// Shutdown stops accepting new connections, closes the listener so
// Accept() unblocks, and waits for in-flight service goroutines and
// connection handlers to drain before returning.
func (s *Server) Shutdown() {
	log.Notice("shutting down knox")
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.listener != nil {
		s.listener.Close()
	}
	s.serviceWg.Wait()
	s.handlerWg.Wait()
	log.Notice("goodbye")
}

func (s *Server) handle(raw net.Conn) {
	defer s.handlerWg.Done()
	defer func() { <-s.connSlots }()
	defer raw.Close()

	id := atomic.AddInt64(&s.nextConnID, 1)
	c := newConn(id, raw, s.stats)
	defer s.pubsub.UnsubscribeAll(c)

	buf := resp.NewBuffer(resp.DefaultMaxBufferSize)
	readBuf := make([]byte, 64*1024)
	httpChecked := false

	for {
		n, err := raw.Read(readBuf)
		if n > 0 {
			s.stats.addBytesIn(n)

			if !httpChecked {
				httpChecked = true
				if looksLikeHTTP(readBuf[:n]) {
					serveHTTPEscapeHatch(raw, readBuf[:n])
					return
				}
			}

			if appendErr := buf.Append(readBuf[:n]); appendErr != nil {
				c.Push(resp.EncodeError(appendErr.Error()))
				return
			}
		}
		if err != nil {
			return
		}

		for {
			tokens, consumed, needMore, parseErr := resp.ParseFrame(buf.Bytes())
			if parseErr != nil {
				c.Push(resp.EncodeError(parseErr.Error()))
				if parseErr != resp.ErrProtocol {
					return
				}
				// A malformed frame leaves no reliable boundary to resume
				// from, so the buffered bytes are dropped and the
				// connection stays open.
				buf.Consume(buf.Len())
				break
			}
			if needMore {
				break
			}
			buf.Consume(consumed)
			if len(tokens) == 0 {
				continue
			}

			s.stats.addCommand()
			if dispatch.Dispatch(s.dispatcher, c, tokens) {
				return
			}
		}
	}
}

func looksLikeHTTP(b []byte) bool {
	return bytes.HasPrefix(b, []byte("GET "))
}
