package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ripplemq/ripplemq/broker"
	"github.com/ripplemq/ripplemq/packets"
)

// ErrShutdownTimeout is returned when graceful shutdown exceeds the
// configured timeout.
var ErrShutdownTimeout = errors.New("transport: shutdown timeout exceeded")

// Config holds the TCP listener's configuration.
type Config struct {
	Address         string
	Logger          *slog.Logger
	ShutdownTimeout time.Duration
}

// Listener accepts TCP connections and drives each through a
// broker.Director, grounded on the teacher's server/tcp.Server
// (accept loop, per-connection goroutine, graceful shutdown with
// connection draining).
type Listener struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	cfg      Config
	director *broker.Director
	listener net.Listener
}

// New returns a Listener that dispatches accepted connections to director.
func New(cfg Config, director *broker.Director) *Listener {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Listener{cfg: cfg, director: director}
}

// Serve blocks accepting connections until ctx is cancelled, then drains
// in-flight connections up to ShutdownTimeout.
func (l *Listener) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("transport: listen on %s: %w", l.cfg.Address, err)
	}
	l.mu.Lock()
	l.listener = ln
	l.mu.Unlock()

	l.cfg.Logger.Info("mqtt listener started", slog.String("address", l.cfg.Address))

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			nc, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.cfg.Logger.Error("accept failed", slog.String("error", err.Error()))
				continue
			}
			l.wg.Add(1)
			go l.handleConn(nc)
		}
	}()

	<-ctx.Done()
	return l.shutdown(ln, acceptDone)
}

func (l *Listener) shutdown(ln net.Listener, acceptDone <-chan struct{}) error {
	l.cfg.Logger.Info("shutting down mqtt listener")
	_ = ln.Close()
	<-acceptDone

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(l.cfg.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// Addr returns the listener's bound address, or nil before Serve starts.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// handleConn is the per-connection read loop: the first packet must be
// CONNECT (§4.7); every packet after that goes through Dispatch until a
// decode error, a handler error, or a DISCONNECT ends the loop.
// Grounded on the split between io.moquette.server.MessageHandler (owned
// here) and ProtocolProcessor (broker.Director.Dispatch).
func (l *Listener) handleConn(nc net.Conn) {
	defer l.wg.Done()
	defer nc.Close()

	c := newConn(nc)
	logger := l.cfg.Logger.With(slog.String("remote", c.RemoteAddr()))

	first, err := packets.ReadPacket(nc)
	if err != nil {
		logger.Debug("failed to read CONNECT", slog.String("error", err.Error()))
		return
	}
	connectPkt, ok := first.(*packets.Connect)
	if !ok {
		logger.Debug("first packet was not CONNECT", slog.String("type", first.String()))
		return
	}

	res, err := l.director.HandleConnect(c, connectPkt)
	if errors.Is(err, broker.ErrConnectionDisplaced) {
		logger.Debug("CONNECT abandoned, clientID already connected")
		return
	}

	ack := &packets.ConnAck{SessionPresent: res.SessionPresent, ReturnCode: res.ReturnCode}
	ack.FixedHeader = packets.FixedHeader{PacketType: packets.ConnAckType}
	if writeErr := c.WritePacket(ack); writeErr != nil {
		return
	}
	if flushErr := c.Flush(); flushErr != nil {
		return
	}
	if err != nil {
		logger.Debug("CONNECT rejected", slog.String("error", err.Error()))
		return
	}

	desc := res.Descriptor
	logger.Info("client connected", slog.String("client_id", desc.ClientID))

	if res.KeepAlive > 0 {
		_ = nc.SetReadDeadline(time.Now().Add(res.KeepAlive))
	}

	for {
		pkt, err := packets.ReadPacket(nc)
		if err != nil {
			logger.Debug("read loop ended", slog.String("error", err.Error()))
			_ = l.director.HandleConnectionLost(desc)
			return
		}
		if res.KeepAlive > 0 {
			_ = nc.SetReadDeadline(time.Now().Add(res.KeepAlive))
		}

		if _, isDisconnect := pkt.(*packets.Disconnect); isDisconnect {
			_ = c.Flush()
			_ = l.director.HandleDisconnect(desc)
			return
		}

		if err := l.director.Dispatch(desc, pkt); err != nil {
			logger.Debug("dispatch failed, closing connection", slog.String("error", err.Error()))
			_ = c.Flush()
			_ = l.director.HandleConnectionLost(desc)
			return
		}
		l.director.DrainSession(desc)
		desc.Session.MarkWritten()
	}
}
