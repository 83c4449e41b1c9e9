package natsclient

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/signalgrid/signalgrid-core/internal/infrastructure/config"
	"github.com/signalgrid/signalgrid-core/internal/infrastructure/logging"
)

// statusBuffer is the capacity of the status event channel. Events beyond
// this while the supervision loop is busy are dropped rather than blocking
// the transport's callback goroutine.
const statusBuffer = 64

// Client owns a single supervised NATS connection.
//
// It resolves the declarative configuration into connection options,
// establishes the connection, and runs a background supervision loop that
// turns the transport's asynchronous status notifications into structured
// log entries.
//
// At most one connection is live at a time. Start is idempotent; calling it
// on a connected client logs a warning and does nothing. Reconnection is
// delegated entirely to the transport's built-in policy — the client never
// re-dials on its own.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	cfg    config.NATSConfig
	logger *logging.Logger

	// conn is the live connection, nil when absent. done is closed when the
	// supervision loop for conn has finished.
	conn   *nats.Conn
	done   chan struct{}
	connMu sync.RWMutex
}

// New creates a client for the given configuration. No connection is made
// until Start is called.
func New(cfg config.NATSConfig, logger *logging.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "nats"),
	}
}

// Start resolves the configuration and establishes the NATS connection.
//
// On success the supervision loop is launched in the background and Start
// returns immediately; Start does not wait for it. On failure no state is
// retained and the error is returned to the caller — a failed Start is
// always synchronous and distinguishable from a connection that died later
// (the latter is only visible in the logs).
//
// Returns:
//   - error: Wrapping ErrResolveFailed if credential/cert material cannot be
//     resolved, or ErrConnectionFailed if the transport cannot connect
func (c *Client) Start() error {
	c.connMu.RLock()
	connected := c.conn != nil
	c.connMu.RUnlock()
	if connected {
		c.logger.Warn("start ignored, connection already established")
		return nil
	}

	opts, err := ResolveOptions(c.cfg)
	if err != nil {
		c.logger.Error("failed to resolve connection options", "error", err)
		return err
	}

	events := make(chan StatusEvent, statusBuffer)
	closed := make(chan error, 1)
	done := make(chan struct{})

	natsOpts := append(opts.natsOptions(), c.statusHandlers(events, closed)...)

	conn, err := nats.Connect(opts.serverURL(), natsOpts...)
	if err != nil {
		c.logger.Error("failed to connect", "servers", opts.Servers, "error", err)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.done = done
	c.connMu.Unlock()

	go c.supervise(conn, events, closed, done)

	c.logger.Info("connected",
		"server", conn.ConnectedUrl(),
		"name", opts.Name,
		"auth_methods", len(opts.Authenticators),
		"tls", opts.TLS != nil,
	)
	return nil
}

// Stop gracefully drains and closes the connection.
//
// Drain flushes all in-flight outbound messages before closing; Stop blocks
// until the transport reports the connection closed and the supervision loop
// has finished. The drain deadline is the configured drain_timeout (or the
// transport default). Calling Stop with no live connection is a no-op.
func (c *Client) Stop() error {
	c.connMu.RLock()
	conn := c.conn
	done := c.done
	c.connMu.RUnlock()

	if conn == nil {
		return nil
	}

	c.logger.Info("draining connection")
	if err := conn.Drain(); err != nil {
		c.logger.Error("drain failed, closing connection", "error", err)
		conn.Close()
	}

	if done != nil {
		<-done
	}
	c.clearConn(conn)
	return nil
}

// IsConnected reports whether a live, currently connected connection exists.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// ConnectedServer returns the URL of the server currently serving the
// connection, or "" when disconnected.
func (c *Client) ConnectedServer() string {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.ConnectedUrl()
}

// Stats returns the transport's connection counters. Zero-valued when no
// connection exists.
func (c *Client) Stats() nats.Statistics {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	if c.conn == nil {
		return nats.Statistics{}
	}
	return c.conn.Stats()
}

// Conn exposes the underlying connection for publish/subscribe use.
// Returns nil when no connection exists.
func (c *Client) Conn() *nats.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

// clearConn drops the stored reference if it still points at conn.
// A Start that raced ahead with a newer connection is left untouched.
func (c *Client) clearConn(conn *nats.Conn) {
	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.done = nil
	}
	c.connMu.Unlock()
}
