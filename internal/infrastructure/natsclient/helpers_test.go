package natsclient

import (
	"context"
	"log/slog"
	"sync"

	"github.com/signalgrid/signalgrid-core/internal/infrastructure/config"
	"github.com/signalgrid/signalgrid-core/internal/infrastructure/logging"
)

// logRecord is one captured log entry.
type logRecord struct {
	level   slog.Level
	message string
	attrs   map[string]string
}

// recordSink collects log records across handler clones.
type recordSink struct {
	mu      sync.Mutex
	records []logRecord
}

func (s *recordSink) snapshot() []logRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logRecord(nil), s.records...)
}

// captureHandler is a slog.Handler that records every entry into a shared
// sink, letting tests assert on severity, message, and attributes.
type captureHandler struct {
	sink  *recordSink
	attrs []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	rec := logRecord{
		level:   r.Level,
		message: r.Message,
		attrs:   make(map[string]string),
	}
	for _, a := range h.attrs {
		rec.attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[a.Key] = a.Value.String()
		return true
	})
	h.sink.mu.Lock()
	h.sink.records = append(h.sink.records, rec)
	h.sink.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{
		sink:  h.sink,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

// newTestClient builds a client whose log output is captured in the
// returned sink.
func newTestClient(cfg config.NATSConfig) (*Client, *recordSink) {
	sink := &recordSink{}
	logger := &logging.Logger{Logger: slog.New(&captureHandler{sink: sink})}
	return New(cfg, logger), sink
}
