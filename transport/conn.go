// Package transport implements the TCP listener and per-connection read
// loop that drives broker.Director. It is the "external collaborator"
// the protocol engine itself stays ignorant of (§1): a real net.Conn,
// the wire codec in packets/, and socket lifecycle.
package transport

import (
	"bufio"
	"net"
	"sync/atomic"

	"github.com/ripplemq/ripplemq/packets"
)

// conn adapts a net.Conn to broker.Channel: a mutex-guarded bufio.Writer
// so concurrent WritePacket calls (direct replies and fan-out deliveries
// from other goroutines) never interleave mid-packet, plus an explicit
// Flush for the session's auto-flush handler to batch writes under.
// Grounded on the teacher's mqtt/connection.go writeSync path, minus its
// separate control/data queues: the session's own enqueue/drain already
// provides the offline-queue behavior those channels existed for.
type conn struct {
	nc         net.Conn
	bw         *bufio.Writer
	writeMu    chan struct{} // 1-buffered, acts as a non-reentrant mutex
	closed     atomic.Bool
	remoteAddr string
}

func newConn(nc net.Conn) *conn {
	c := &conn{
		nc:         nc,
		bw:         bufio.NewWriter(nc),
		writeMu:    make(chan struct{}, 1),
		remoteAddr: nc.RemoteAddr().String(),
	}
	c.writeMu <- struct{}{}
	return c
}

func (c *conn) WritePacket(pkt packets.ControlPacket) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	<-c.writeMu
	defer func() { c.writeMu <- struct{}{} }()

	if err := pkt.Pack(c.bw); err != nil {
		return err
	}
	return nil
}

// Writable reports whether the connection is still open. There is no
// separate backpressure signal: a bufio.Writer over a TCP socket blocks
// rather than reports "full", so the session's own enqueue bound is the
// real backpressure valve (§5).
func (c *conn) Writable() bool {
	return !c.closed.Load()
}

func (c *conn) Flush() error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	<-c.writeMu
	defer func() { c.writeMu <- struct{}{} }()
	return c.bw.Flush()
}

func (c *conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.nc.Close()
}

func (c *conn) RemoteAddr() string { return c.remoteAddr }
