// Package admind serves the debug and status HTTP endpoint of the IRC
// server: read-only JSON snapshots of the registry, Prometheus metrics and
// a relay for server notices to a channel.
package admind

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/presbrey/ircd/irc/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the admin HTTP endpoint for one IRC server.
type Server struct {
	irc     *server.Server
	echo    *echo.Echo
	metrics *requestMetrics

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// New builds the endpoint and its routes. Nothing listens until Start.
func New(ircd *server.Server) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	s := &Server{
		irc:     ircd,
		echo:    e,
		metrics: newRequestMetrics(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[admin] %s %s %d from %s (took %s)", v.Method, v.URI, v.Status, v.RemoteIP, v.Latency)
			return nil
		},
	}))
	e.Use(s.metrics.middleware())

	s.route(e)
	return s
}

func (s *Server) route(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/channels", s.handleChannels)
	api.GET("/channels/:name", s.handleChannel)
	api.POST("/channels/:name/notice", s.handleNotice)
	api.GET("/users", s.handleUsers)
	api.GET("/users/:nick", s.handleUser)
	api.GET("/connections", s.handleConnections)

	gatherers := prometheus.Gatherers{s.irc.Metrics().Registry, s.metrics.registry}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))
}

// Handler exposes the routes for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("admin endpoint already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.echo.Listener = listener
	s.running = true
	s.done = make(chan struct{})
	log.Printf("[admin] Listening on %s", listener.Addr())

	go func() {
		defer close(s.done)
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[admin] Warning: server stopped: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.echo.Listener == nil {
		return nil
	}
	return s.echo.Listener.Addr()
}

// Stop shuts the endpoint down, waiting up to five seconds for in-flight
// requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Println("[admin] Stopping")
	err := s.echo.Shutdown(ctx)
	<-s.done
	return err
}
