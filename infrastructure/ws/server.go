// Package ws exposes the session protocol over websocket connections.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"planning-poker/contract"
	"planning-poker/runtime"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

// Coordinator is the part of the runtime a connection talks to.
type Coordinator interface {
	Connect(connectionID string, sink contract.EventSink) *runtime.Session
	HandleMessage(ctx context.Context, s *runtime.Session, raw []byte)
	Disconnect(ctx context.Context, s *runtime.Session)
}

type ConnectionGauge interface {
	ConnectionOpened()
	ConnectionClosed()
	InboundRejected()
}

type Options struct {
	ReadLimit     int64
	SendBuffer    int
	ActionTimeout time.Duration
	// RatePerSecond and Burst bound the inbound frames of one connection.
	// A zero rate disables the limit.
	RatePerSecond  float64
	Burst          int
	AllowedOrigins []string
}

type Server struct {
	log         *slog.Logger
	coordinator Coordinator
	gauge       ConnectionGauge
	opts        Options
	upgrader    websocket.Upgrader
}

func NewServer(log *slog.Logger, coordinator Coordinator, gauge ConnectionGauge, opts Options) *Server {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 64 << 10
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}
	s := &Server{log: log, coordinator: coordinator, gauge: gauge, opts: opts}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	return lo.Contains(s.opts.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", "error", err)
		return
	}

	var limiter *rate.Limiter
	if s.opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.RatePerSecond), max(s.opts.Burst, 1))
	}
	client := newClient(s.log, uuid.NewString(), conn, s.opts.SendBuffer, limiter)
	session := s.coordinator.Connect(client.ID(), client)
	if s.gauge != nil {
		s.gauge.ConnectionOpened()
	}

	go client.writePump()
	go func() {
		defer func() {
			client.Close()
			s.coordinator.Disconnect(context.Background(), session)
			if s.gauge != nil {
				s.gauge.ConnectionClosed()
			}
		}()
		client.readPump(s.opts.ReadLimit, func(raw []byte) {
			ctx, cancel := context.WithTimeout(context.Background(), s.opts.ActionTimeout)
			defer cancel()
			s.coordinator.HandleMessage(ctx, session, raw)
		}, func() {
			if s.gauge != nil {
				s.gauge.InboundRejected()
			}
		})
	}()
}
