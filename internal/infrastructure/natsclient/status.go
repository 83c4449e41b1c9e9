package natsclient

import (
	"errors"

	"github.com/nats-io/nats.go"
)

// EventType tags a connection status notification.
type EventType string

// Status event types emitted by the transport while a connection is live.
const (
	EventError           EventType = "error"
	EventDisconnect      EventType = "disconnect"
	EventReconnect       EventType = "reconnect"
	EventReconnecting    EventType = "reconnecting"
	EventStaleConnection EventType = "stale_connection"
	EventLameDuck        EventType = "lame_duck"
	EventClusterUpdate   EventType = "cluster_update"
)

// StatusEvent is a single non-terminal status notification.
type StatusEvent struct {
	Type    EventType
	Server  string
	Subject string
	Err     error
}

// statusHandlers wires the transport's connection callbacks to the two
// channels the supervision loop consumes: a stream of status events and a
// single-shot closed signal carrying the connection's final error, if any.
//
// Callbacks run on the transport's goroutine and must not block, so status
// sends are non-blocking: if the buffer is full the event is dropped. The
// closed channel is buffered and fires exactly once.
func (c *Client) statusHandlers(events chan<- StatusEvent, closed chan<- error) []nats.Option {
	emit := func(ev StatusEvent) {
		select {
		case events <- ev:
		default:
		}
	}

	return []nats.Option{
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			emit(StatusEvent{Type: EventDisconnect, Err: err})
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			emit(StatusEvent{Type: EventReconnect, Server: nc.ConnectedUrl()})
		}),
		nats.ReconnectErrHandler(func(_ *nats.Conn, err error) {
			emit(StatusEvent{Type: EventReconnecting, Err: err})
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			ev := StatusEvent{Type: EventError, Err: err}
			if errors.Is(err, nats.ErrStaleConnection) {
				ev.Type = EventStaleConnection
			}
			if sub != nil {
				ev.Subject = sub.Subject
			}
			emit(ev)
		}),
		nats.LameDuckModeHandler(func(nc *nats.Conn) {
			emit(StatusEvent{Type: EventLameDuck, Server: nc.ConnectedUrl()})
		}),
		nats.DiscoveredServersHandler(func(nc *nats.Conn) {
			emit(StatusEvent{Type: EventClusterUpdate, Server: nc.ConnectedUrl()})
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			closed <- nc.LastError()
		}),
	}
}

// supervise is the connection supervision loop.
//
// It selects over the status stream and the closed signal until the latter
// fires, logging each status event at its mapped severity. The loop is the
// single consumer of both channels and terminates exactly once, when the
// connection is finally closed. It never restarts itself; recovery from
// transient failures is the transport's reconnection policy, not ours.
func (c *Client) supervise(conn *nats.Conn, events <-chan StatusEvent, closed <-chan error, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("supervision loop panic", "panic", r)
		}
	}()

	for {
		select {
		case ev := <-events:
			c.logStatus(ev)
		case err := <-closed:
			// Status events already queued at close time are still reported,
			// in order, ahead of the terminal entry.
			c.flushStatus(events)
			if err != nil {
				c.logger.Error("connection closed", "error", err.Error())
			} else {
				c.logger.Info("connection closed")
			}
			c.clearConn(conn)
			return
		}
	}
}

// flushStatus drains any buffered status events without blocking.
func (c *Client) flushStatus(events <-chan StatusEvent) {
	for {
		select {
		case ev := <-events:
			c.logStatus(ev)
		default:
			return
		}
	}
}

// logStatus writes one status event at its severity:
//
//	error            → error (transport-level error, connection still alive)
//	disconnect       → warn  (link dropped, reconnection may follow)
//	reconnect        → info  (link re-established)
//	reconnecting     → info  (reconnection attempt in progress)
//	stale_connection → debug (heartbeat detected a stale link)
//	lame_duck        → warn  (server draining, clients should migrate)
//	cluster_update   → debug (topology update pushed by server)
//	anything else    → debug (unrecognised status)
func (c *Client) logStatus(ev StatusEvent) {
	args := []any{"type", string(ev.Type)}
	if ev.Server != "" {
		args = append(args, "server", ev.Server)
	}
	if ev.Subject != "" {
		args = append(args, "subject", ev.Subject)
	}
	if ev.Err != nil && !c.cfg.NoAsyncTraces {
		args = append(args, "error", ev.Err)
	}

	switch ev.Type {
	case EventError:
		c.logger.Error("transport error", args...)
	case EventDisconnect:
		c.logger.Warn("disconnected", args...)
	case EventReconnect:
		c.logger.Info("reconnected", args...)
	case EventReconnecting:
		c.logger.Info("reconnecting", args...)
	case EventStaleConnection:
		c.logger.Debug("stale connection detected", args...)
	case EventLameDuck:
		c.logger.Warn("server entering lame duck mode", args...)
	case EventClusterUpdate:
		c.logger.Debug("cluster topology updated", args...)
	default:
		c.logger.Debug("status", args...)
	}
}
