package natsclient

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/signalgrid/signalgrid-core/internal/infrastructure/config"
)

func TestSupervise_EventsThenCleanClose(t *testing.T) {
	c, sink := newTestClient(config.NATSConfig{})
	conn := &nats.Conn{}
	c.conn = conn

	events := make(chan StatusEvent, 8)
	closed := make(chan error, 1)
	done := make(chan struct{})

	events <- StatusEvent{Type: EventDisconnect}
	events <- StatusEvent{Type: EventReconnect, Server: "nats://b:4222"}
	events <- StatusEvent{Type: EventLameDuck, Server: "nats://b:4222"}
	closed <- nil

	c.supervise(conn, events, closed, done)

	select {
	case <-done:
	default:
		t.Fatal("done channel not closed after supervision ended")
	}

	if c.Conn() != nil {
		t.Error("connection reference not cleared after close")
	}

	recs := sink.snapshot()
	if len(recs) != 4 {
		t.Fatalf("got %d log records, want 3 status + 1 terminal", len(recs))
	}
	wantTypes := []string{"disconnect", "reconnect", "lame_duck"}
	for i, want := range wantTypes {
		if recs[i].attrs["type"] != want {
			t.Errorf("records[%d] type = %q, want %q", i, recs[i].attrs["type"], want)
		}
	}
	terminal := recs[3]
	if terminal.level != slog.LevelInfo {
		t.Errorf("terminal record level = %v, want info", terminal.level)
	}
	if terminal.message != "connection closed" {
		t.Errorf("terminal record message = %q", terminal.message)
	}
}

func TestSupervise_ClosedWithError(t *testing.T) {
	c, sink := newTestClient(config.NATSConfig{})
	conn := &nats.Conn{}
	c.conn = conn

	events := make(chan StatusEvent, 1)
	closed := make(chan error, 1)
	done := make(chan struct{})

	closed <- errors.New("nats: authorization violation")

	c.supervise(conn, events, closed, done)

	if c.Conn() != nil {
		t.Error("connection reference not cleared after close")
	}

	recs := sink.snapshot()
	if len(recs) != 1 {
		t.Fatalf("got %d log records, want exactly one terminal entry", len(recs))
	}
	if recs[0].level != slog.LevelError {
		t.Errorf("terminal record level = %v, want error", recs[0].level)
	}
	if recs[0].attrs["error"] != "nats: authorization violation" {
		t.Errorf("terminal record error = %q", recs[0].attrs["error"])
	}
}

func TestLogStatus_SeverityMapping(t *testing.T) {
	tests := []struct {
		name      string
		event     StatusEvent
		wantLevel slog.Level
	}{
		{
			name:      "transport error",
			event:     StatusEvent{Type: EventError, Err: errors.New("slow consumer")},
			wantLevel: slog.LevelError,
		},
		{
			name:      "disconnect",
			event:     StatusEvent{Type: EventDisconnect},
			wantLevel: slog.LevelWarn,
		},
		{
			name:      "reconnect",
			event:     StatusEvent{Type: EventReconnect, Server: "nats://b:4222"},
			wantLevel: slog.LevelInfo,
		},
		{
			name:      "reconnecting",
			event:     StatusEvent{Type: EventReconnecting},
			wantLevel: slog.LevelInfo,
		},
		{
			name:      "stale connection",
			event:     StatusEvent{Type: EventStaleConnection},
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "lame duck",
			event:     StatusEvent{Type: EventLameDuck},
			wantLevel: slog.LevelWarn,
		},
		{
			name:      "cluster update",
			event:     StatusEvent{Type: EventClusterUpdate},
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "unrecognised status",
			event:     StatusEvent{Type: EventType("mystery")},
			wantLevel: slog.LevelDebug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sink := newTestClient(config.NATSConfig{})
			c.logStatus(tt.event)

			recs := sink.snapshot()
			if len(recs) != 1 {
				t.Fatalf("got %d log records, want 1", len(recs))
			}
			if recs[0].level != tt.wantLevel {
				t.Errorf("level = %v, want %v", recs[0].level, tt.wantLevel)
			}
			if recs[0].attrs["type"] != string(tt.event.Type) {
				t.Errorf("type attr = %q, want %q", recs[0].attrs["type"], tt.event.Type)
			}
		})
	}
}

func TestLogStatus_NoAsyncTraces(t *testing.T) {
	c, sink := newTestClient(config.NATSConfig{NoAsyncTraces: true})

	c.logStatus(StatusEvent{Type: EventError, Err: errors.New("slow consumer")})

	recs := sink.snapshot()
	if len(recs) != 1 {
		t.Fatalf("got %d log records, want 1", len(recs))
	}
	if _, ok := recs[0].attrs["error"]; ok {
		t.Error("error detail logged despite no_async_traces")
	}
}

func TestStatusHandlers_CallbackWiring(t *testing.T) {
	c, _ := newTestClient(config.NATSConfig{})
	events := make(chan StatusEvent, 8)
	closed := make(chan error, 1)

	no := nats.GetDefaultOptions()
	for _, opt := range c.statusHandlers(events, closed) {
		if err := opt(&no); err != nil {
			t.Fatalf("applying handler option: %v", err)
		}
	}

	no.DisconnectedErrCB(nil, errors.New("link down"))
	no.AsyncErrorCB(nil, nil, nats.ErrStaleConnection)
	no.AsyncErrorCB(nil, nil, errors.New("slow consumer"))
	no.ReconnectErrCB(nil, errors.New("dial refused"))

	wantTypes := []EventType{EventDisconnect, EventStaleConnection, EventError, EventReconnecting}
	for i, want := range wantTypes {
		select {
		case ev := <-events:
			if ev.Type != want {
				t.Errorf("event[%d].Type = %q, want %q", i, ev.Type, want)
			}
		default:
			t.Fatalf("event[%d] missing, want %q", i, want)
		}
	}

	// The closed callback forwards the connection's final error state.
	no.ClosedCB(&nats.Conn{})
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("closed signal error = %v, want nil for clean close", err)
		}
	default:
		t.Fatal("closed callback did not signal")
	}
}

func TestFlushStatus_DrainsBufferedEventsBeforeTerminal(t *testing.T) {
	c, sink := newTestClient(config.NATSConfig{})
	conn := &nats.Conn{}
	c.conn = conn

	events := make(chan StatusEvent, 8)
	closed := make(chan error, 1)
	done := make(chan struct{})

	// Closed signal already pending while events are still queued: the
	// queued events must still be logged, in order, ahead of the terminal.
	closed <- nil
	events <- StatusEvent{Type: EventDisconnect}
	events <- StatusEvent{Type: EventReconnecting}

	c.supervise(conn, events, closed, done)

	recs := sink.snapshot()
	if len(recs) != 3 {
		t.Fatalf("got %d log records, want 2 status + 1 terminal", len(recs))
	}
	if recs[0].attrs["type"] != "disconnect" || recs[1].attrs["type"] != "reconnecting" {
		t.Errorf("status records out of order: %q, %q", recs[0].attrs["type"], recs[1].attrs["type"])
	}
	if recs[2].message != "connection closed" {
		t.Errorf("last record = %q, want terminal entry", recs[2].message)
	}
}
