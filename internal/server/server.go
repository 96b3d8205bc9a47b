package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/lghartmann/formhttpd/internal/request"
	"github.com/lghartmann/formhttpd/internal/response"
)

type Handler interface {
	ServeRequest(req *request.Request) response.Response
}

type HandlerFunc func(req *request.Request) response.Response

func (f HandlerFunc) ServeRequest(req *request.Request) response.Response {
	return f(req)
}

type Config struct {
	Addr          string
	AllowedOrigin string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	Limits        request.Limits
	// MaxConns bounds the connections handled at once. Accept waits while
	// the bound is reached.
	MaxConns int64
}

type Server struct {
	cfg      Config
	handler  Handler
	log      zerolog.Logger
	listener net.Listener
	sem      *semaphore.Weighted
	closed   atomic.Bool
	conns    sync.WaitGroup
	loopDone chan struct{}
	stop     context.CancelFunc
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting and waits for in-flight connections.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.stop()
	err := s.listener.Close()
	<-s.loopDone
	s.conns.Wait()
	return err
}

// Shutdown is Close bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func Serve(cfg Config, handler Handler, log zerolog.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	return ServeListener(listener, cfg, handler, log), nil
}

// ServeListener runs the accept loop on an existing listener.
func ServeListener(listener net.Listener, cfg Config, handler Handler, log zerolog.Logger) *Server {
	if cfg.MaxConns < 1 {
		cfg.MaxConns = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	server := &Server{
		cfg:      cfg,
		handler:  handler,
		log:      log,
		listener: listener,
		sem:      semaphore.NewWeighted(cfg.MaxConns),
		loopDone: make(chan struct{}),
		stop:     cancel,
	}
	go runServer(ctx, server)

	return server
}

func runServer(ctx context.Context, s *Server) {
	defer close(s.loopDone)
	s.log.Info().Str("addr", s.listener.Addr().String()).Msg("listening")

	for {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}

		conn, err := s.listener.Accept()
		if err != nil {
			s.sem.Release(1)
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("accept failed")
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			defer s.sem.Release(1)
			runConnection(s, conn)
		}()
	}
}

func runConnection(s *Server, conn net.Conn) {
	defer conn.Close()
	start := time.Now()
	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(start.Add(s.cfg.ReadTimeout))
	}

	r, err := request.RequestFromReader(bufio.NewReader(conn), s.cfg.Limits)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrConnectionClosed):
			log.Debug().Msg("connection closed before a full request")
		case request.IsClientError(err):
			log.Info().Err(err).Msg("bad request")
			s.write(conn, log, response.BadRequest(err.Error()))
		default:
			log.Warn().Err(err).Msg("reading request failed")
		}
		return
	}

	resp := s.dispatch(r, log)
	s.write(conn, log, resp)

	log.Info().
		Str("method", r.RequestLine.Method).
		Str("path", r.RequestLine.RequestTarget).
		Int("status", int(resp.Status)).
		Dur("took", time.Since(start)).
		Msg("served")
}

func (s *Server) dispatch(r *request.Request, log zerolog.Logger) (resp response.Response) {
	defer func() {
		if v := recover(); v != nil {
			log.Error().Interface("panic", v).Str("path", r.RequestLine.RequestTarget).Msg("handler panicked")
			resp = response.InternalServerError(fmt.Sprint(v))
		}
	}()
	return s.handler.ServeRequest(r)
}

func (s *Server) write(conn net.Conn, log zerolog.Logger, resp response.Response) {
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	cors := response.CORS{AllowOrigin: s.cfg.AllowedOrigin}
	if err := response.NewWriter(conn).WriteResponse(resp, cors); err != nil {
		log.Warn().Err(err).Msg("writing response failed")
	}
}
