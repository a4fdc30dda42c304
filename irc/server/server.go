package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/presbrey/ircd/irc/config"
	"github.com/presbrey/ircd/irc/templates"
)

// Server represents the IRC server
type Server struct {
	config    *config.Config
	startTime time.Time
	registry  *Registry
	templates atomic.Pointer[templates.Engine]
	metrics   *Metrics
	hooks     *Hooks
	policy    OverflowPolicy
	conns     sync.Map // map[ConnectionIdentity]*Connection

	mu        sync.Mutex
	listeners []net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewServer creates a new IRC server. The configuration must not change
// while the server runs.
func NewServer(cfg *config.Config) (*Server, error) {
	policy, err := ParseOverflowPolicy(cfg.Limits.MailboxOverflow)
	if err != nil {
		return nil, err
	}

	engine, err := templates.New(cfg.Templates)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:    cfg,
		startTime: time.Now(),
		registry:  NewRegistry(cfg.Server.Name),
		metrics:   NewMetrics(),
		hooks:     NewHooks(),
		policy:    policy,
		ctx:       ctx,
		cancel:    cancel,
	}
	srv.registry.metrics = srv.metrics
	srv.templates.Store(engine)

	return srv, nil
}

// Start listens on every configured address and accepts connections in the
// background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, addr := range s.config.ListenAddresses() {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			for _, l := range s.listeners {
				l.Close()
			}
			s.listeners = nil
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		s.listeners = append(s.listeners, listener)
		log.Printf("Listening on %s", listener.Addr())
	}

	for _, listener := range s.listeners {
		s.wg.Add(1)
		go s.acceptConnections(listener)
	}
	return nil
}

// Stop closes the listeners, sends ERROR to every connection and waits for
// them to finish.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for _, listener := range s.listeners {
		listener.Close()
	}
	s.listeners = nil
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// acceptConnections accepts and handles new connections
func (s *Server) acceptConnections(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Warning: failed to accept connection: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		identity := ConnectionIdentity{
			Local:  conn.LocalAddr().String(),
			Remote: conn.RemoteAddr().String(),
		}
		c := s.newConnection(identity, conn)
		if _, loaded := s.conns.LoadOrStore(identity, c); loaded {
			log.Printf("Warning: %v: %s", ErrConnectionExists, identity.Remote)
			conn.Close()
			continue
		}
		s.metrics.connectionOpened()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.serve(s.ctx)
		}()
	}
}

// Reload applies the reloadable settings of cfg, which are the reply
// templates. Everything else takes effect on restart.
func (s *Server) Reload(cfg *config.Config) error {
	engine, err := templates.New(cfg.Templates)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	s.templates.Store(engine)
	log.Printf("Reloaded templates: %s", strings.Join(engine.Names(), ", "))
	return nil
}

// Addrs returns the bound listener addresses.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, l := range s.listeners {
		addrs = append(addrs, l.Addr())
	}
	return addrs
}

// Registry returns the user and channel registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Metrics returns the server's Prometheus collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Hooks returns the lifecycle hook set.
func (s *Server) Hooks() *Hooks {
	return s.hooks
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *config.Config {
	return s.config
}

// GetUptime returns the server uptime
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.startTime)
}

// ConnectionInfo describes a live connection.
type ConnectionInfo struct {
	ID string `json:"id"`
	ConnectionIdentity
	Hostname string `json:"hostname"`
	Queued   int    `json:"queued"`
	Dropped  int64  `json:"dropped"`
}

// Connections lists the live connections, registered or not.
func (s *Server) Connections() []ConnectionInfo {
	var out []ConnectionInfo
	s.conns.Range(func(key, value any) bool {
		c := value.(*Connection)
		out = append(out, ConnectionInfo{
			ID:                 c.ID,
			ConnectionIdentity: c.identity,
			Hostname:           c.hostname,
			Queued:             c.mailbox.Len(),
			Dropped:            c.mailbox.Dropped(),
		})
		return true
	})
	return out
}

// ConnectionCount returns the number of live connections
func (s *Server) ConnectionCount() int {
	count := 0
	s.conns.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
