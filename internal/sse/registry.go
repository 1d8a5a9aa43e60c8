package sse

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/newswire-dev/newswire/internal/metrics"
)

// Defaults for Options fields left zero.
const (
	DefaultKeepAliveInterval = 30 * time.Second
	DefaultSweepInterval     = 5 * time.Minute
	DefaultStaleAfter        = 10 * time.Minute
	DefaultSendBuffer        = 16
)

// Options tunes registry behavior. The zero value uses the defaults above.
type Options struct {
	KeepAliveInterval time.Duration
	SweepInterval     time.Duration
	StaleAfter        time.Duration
	SendBuffer        int
}

func (o Options) withDefaults() Options {
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = DefaultSendBuffer
	}
	return o
}

// Registry tracks every open SSE connection and broadcasts events to all of
// them. Explicitly constructed and injected; Close releases everything.
type Registry struct {
	clock clockwork.Clock
	opts  Options

	mu    sync.Mutex
	conns map[uuid.UUID]*Conn

	done      chan struct{}
	closeOnce sync.Once
}

// NewRegistry creates a registry and starts its background stale sweep.
func NewRegistry(clock clockwork.Clock, opts Options) *Registry {
	r := &Registry{
		clock: clock,
		opts:  opts.withDefaults(),
		conns: make(map[uuid.UUID]*Conn),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// NewConn builds a connection bound to this registry's clock and buffering.
// flush may be nil for writers that do not buffer.
func (r *Registry) NewConn(w io.Writer, flush func()) *Conn {
	return newConn(w, flush, r.clock, r.opts.KeepAliveInterval, r.opts.SendBuffer)
}

// Register inserts the connection, starts its writer, and queues the initial
// connected frame. Never fails; the caller has already established the stream.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	c.onDead = r.Unregister
	r.conns[c.id] = c
	total := len(r.conns)
	r.mu.Unlock()

	metrics.SSEConnectedClients.Set(float64(total))
	go c.run()
	c.enqueue(connectedFrame)
	slog.Debug("SSE connection registered", "conn_id", c.id.String(), "total", total)
}

// Unregister removes the connection and stops its writer. Idempotent and safe
// to call on a connection that was never registered.
func (r *Registry) Unregister(c *Conn) {
	if c == nil {
		return
	}

	r.mu.Lock()
	_, known := r.conns[c.id]
	if known {
		delete(r.conns, c.id)
	}
	total := len(r.conns)
	r.mu.Unlock()

	c.close()
	if known {
		metrics.SSEConnectedClients.Set(float64(total))
		slog.Debug("SSE connection unregistered", "conn_id", c.id.String(), "total", total)
	}
}

// Writable reports whether the connection is registered and still open.
// Checked immediately before every write, since the peer may have closed the
// transport asynchronously.
func (r *Registry) Writable(c *Conn) bool {
	if c == nil {
		return false
	}
	r.mu.Lock()
	_, known := r.conns[c.id]
	r.mu.Unlock()
	return known && c.State() == StateOpen
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Broadcast serializes the event once and offers it to every registered
// connection. Unwritable connections and slow clients (full send buffer) are
// queued for removal and unregistered after the iteration; the map is never
// mutated while being walked. Broadcast never returns an error.
func (r *Registry) Broadcast(event Event) {
	frame, err := event.frame()
	if err != nil {
		slog.Error("Failed to serialize broadcast event", "type", string(event.Type), "error", err)
		return
	}
	metrics.SSEEventsBroadcastTotal.WithLabelValues(string(event.Type)).Inc()

	r.mu.Lock()
	var evict []*Conn
	for _, c := range r.conns {
		if c.State() != StateOpen {
			evict = append(evict, c)
			continue
		}
		if !c.enqueue(frame) {
			metrics.SSESlowClientsEvicted.Inc()
			slog.Debug("Evicting slow SSE client", "conn_id", c.id.String())
			evict = append(evict, c)
		}
	}
	r.mu.Unlock()

	for _, c := range evict {
		r.Unregister(c)
	}
}

// ServeStream registers a connection for the given writer and blocks until
// the request context is cancelled or the connection dies. This is the
// contract the HTTP streaming endpoint consumes.
func (r *Registry) ServeStream(ctx context.Context, w io.Writer, flush func()) error {
	c := r.NewConn(w, flush)
	r.Register(c)

	select {
	case <-ctx.Done():
		r.Unregister(c)
	case <-c.Done():
	}
	return nil
}

// Close unregisters every connection and stops the sweep loop.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)

		r.mu.Lock()
		conns := make([]*Conn, 0, len(r.conns))
		for _, c := range r.conns {
			conns = append(conns, c)
		}
		r.mu.Unlock()

		for _, c := range conns {
			r.Unregister(c)
		}
		slog.Info("SSE registry closed", "disconnected", len(conns))
	})
}

func (r *Registry) run() {
	ticker := r.clock.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.sweep()
		case <-r.done:
			return
		}
	}
}

// sweep reclaims connections whose disconnect was never observed by a write:
// anything already closed or idle beyond the stale threshold.
func (r *Registry) sweep() {
	now := r.clock.Now()

	r.mu.Lock()
	var stale []*Conn
	for _, c := range r.conns {
		if c.State() != StateOpen || now.Sub(c.lastSeen()) > r.opts.StaleAfter {
			stale = append(stale, c)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		metrics.SSEStaleConnectionsSwept.Inc()
		slog.Info("Sweeping stale SSE connection", "conn_id", c.id.String(), "idle", now.Sub(c.lastSeen()).String())
		r.Unregister(c)
	}
}
