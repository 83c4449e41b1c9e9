package api

import (
	"net/http"
)

// StatusResponse reports the state of the supervised NATS connection.
type StatusResponse struct {
	Connected  bool   `json:"connected"`
	Server     string `json:"server,omitempty"`
	Reconnects uint64 `json:"reconnects"`
	InMsgs     uint64 `json:"in_msgs"`
	OutMsgs    uint64 `json:"out_msgs"`
	InBytes    uint64 `json:"in_bytes"`
	OutBytes   uint64 `json:"out_bytes"`
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleStatus reports the NATS connection state and transport counters.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats := s.nats.Stats()
	writeJSON(w, http.StatusOK, StatusResponse{
		Connected:  s.nats.IsConnected(),
		Server:     s.nats.ConnectedServer(),
		Reconnects: stats.Reconnects,
		InMsgs:     stats.InMsgs,
		OutMsgs:    stats.OutMsgs,
		InBytes:    stats.InBytes,
		OutBytes:   stats.OutBytes,
	})
}
