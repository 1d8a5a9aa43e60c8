package sse

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/newswire-dev/newswire/internal/metrics"
)

// ConnState is the lifecycle state of one stream connection.
// There is no transition back to open; a reconnecting client gets a new Conn.
type ConnState int

const (
	StateOpen ConnState = iota
	StateClosing
	StateClosed
)

// Conn is one open SSE stream. A dedicated writer goroutine drains the send
// buffer, so events are delivered in order per connection and a slow peer
// never blocks a broadcast.
type Conn struct {
	id             uuid.UUID
	w              io.Writer
	flush          func()
	clock          clockwork.Clock
	keepAliveEvery time.Duration

	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
	onDead   func(*Conn)

	mu           sync.Mutex
	state        ConnState
	lastActivity time.Time
}

func newConn(w io.Writer, flush func(), clock clockwork.Clock, keepAliveEvery time.Duration, buffer int) *Conn {
	return &Conn{
		id:             uuid.New(),
		w:              w,
		flush:          flush,
		clock:          clock,
		keepAliveEvery: keepAliveEvery,
		send:           make(chan []byte, buffer),
		done:           make(chan struct{}),
		state:          StateOpen,
		lastActivity:   clock.Now(),
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the connection is dead, whether by write failure,
// explicit unregistration, or the stale sweep.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// run drains the send buffer and emits periodic keep-alives. Exits on the
// first write failure or when the connection is closed.
func (c *Conn) run() {
	ticker := c.clock.NewTicker(c.keepAliveEvery)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			if err := c.writeFrame(frame); err != nil {
				c.fail(err)
				return
			}
		case <-ticker.Chan():
			if err := c.writeFrame(keepAliveFrame); err != nil {
				c.fail(err)
				return
			}
			metrics.SSEKeepAlivesTotal.Inc()
		case <-c.done:
			return
		}
	}
}

// writeFrame writes one frame, flushes it to the peer, and refreshes the
// activity timestamp on success.
func (c *Conn) writeFrame(frame []byte) error {
	if _, err := c.w.Write(frame); err != nil {
		return err
	}
	if c.flush != nil {
		c.flush()
	}
	c.mu.Lock()
	c.lastActivity = c.clock.Now()
	c.mu.Unlock()
	return nil
}

// fail handles a write failure. Client churn is expected and frequent, so
// this logs at debug level, never as an error.
func (c *Conn) fail(err error) {
	slog.Debug("SSE write failed, dropping connection", "conn_id", c.id.String(), "error", err)
	metrics.SSEWriteFailuresTotal.Inc()
	if c.onDead != nil {
		c.onDead(c)
	}
}

// enqueue offers a frame to the send buffer without blocking.
// Returns false when the buffer is full (a slow client).
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// lastSeen returns the time of the last successful write.
func (c *Conn) lastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// close transitions the connection to closed and stops the writer goroutine.
// Idempotent.
func (c *Conn) close() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		close(c.done)
	})
}
