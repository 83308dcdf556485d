package monitor

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"callscreen/internal/metrics"
)

// Handler consumes one raw line from the call monitor. Lines are delivered
// strictly in arrival order from a single goroutine; the next line is not
// read until the handler returns.
type Handler func(raw string)

// Monitor holds the long-lived connection to the router's call-monitor port
// (1012 by default, enabled on the box by dialing #96*5*). It reads lines
// and hands them to a handler and an optional raw-line logger, reconnecting
// with a fixed backoff when the transport drops.
type Monitor struct {
	addr    string
	backoff time.Duration
	handler Handler
	logger  Handler

	// dial is replaceable for tests.
	dial func(ctx context.Context) (net.Conn, error)
}

// New builds a monitor for host:port. The logger may be nil.
func New(host string, port int, backoff time.Duration, handler, logger Handler) *Monitor {
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	addr := fmt.Sprintf("%s:%d", host, port)
	m := &Monitor{addr: addr, backoff: backoff, handler: handler, logger: logger}
	m.dial = func(ctx context.Context) (net.Conn, error) {
		// Keep-alive is required, the box stops reporting on idle
		// connections otherwise.
		d := net.Dialer{KeepAlive: 10 * time.Second}
		return d.DialContext(ctx, "tcp", m.addr)
	}
	return m
}

// Run connects and consumes lines until ctx is cancelled. A dead connection
// is detected by the read itself failing; Run then waits the backoff and
// redials. Lines arriving during an outage are lost.
func (m *Monitor) Run(ctx context.Context) error {
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if !first {
			metrics.IncReconnects()
			select {
			case <-time.After(m.backoff):
			case <-ctx.Done():
				return nil
			}
		}
		first = false

		conn, err := m.dial(ctx)
		if err != nil {
			log.Printf("call monitor connect %s failed: %v", m.addr, err)
			continue
		}
		log.Printf("call monitor connected to %s", m.addr)

		// Unblock the read when ctx is cancelled. The current line's
		// handler still runs to completion before Run returns.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()
		err = m.consume(conn)
		close(done)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("call monitor connection lost: %v", err)
		}
	}
}

func (m *Monitor) consume(conn net.Conn) error {
	r := bufio.NewReader(conn)
	for {
		raw, err := r.ReadString('\n')
		if raw != "" {
			metrics.IncLinesRead()
			m.handler(raw)
			if m.logger != nil {
				m.logger(raw)
			}
		}
		if err != nil {
			return err
		}
	}
}

// ReplayFile feeds lines from a recorded call-monitor file through the
// handler, skipping blank lines and `#` comments. Useful for offline
// examination of captured traffic in place of the socket.
func ReplayFile(path string, handler Handler) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		handler(line + "\n")
	}
	return sc.Err()
}
