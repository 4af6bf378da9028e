// Package api serves the link's debug/status HTTP endpoints. It is mounted
// by cmd/visionlink when a status address is configured; nothing in the
// core link depends on it.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Team537/RobotCode2026/internal/vision"
	"github.com/Team537/RobotCode2026/internal/wire"
)

// TelemetrySource is the read surface of the telemetry receiver.
type TelemetrySource interface {
	Snapshot() (wire.Object, bool)
	LastSequence() int64
}

// CommandSender is the send surface of the command channel.
type CommandSender interface {
	Send(v any) error
	IsConnected() bool
}

// Server exposes the current link state over HTTP.
type Server struct {
	telemetry TelemetrySource
	stats     *vision.PacketStats
	sender    CommandSender
	estimate  *vision.ClockEstimate
}

// NewServer creates a status server over the given link components. stats,
// sender, and estimate may be nil; their endpoints then report absence.
func NewServer(telemetry TelemetrySource, stats *vision.PacketStats, sender CommandSender, estimate *vision.ClockEstimate) *Server {
	return &Server{
		telemetry: telemetry,
		stats:     stats,
		sender:    sender,
		estimate:  estimate,
	}
}

// ServeMux returns the handler mux for the status endpoints.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.snapshotHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/sync", s.syncHandler)
	mux.HandleFunc("/command", s.commandHandler)
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// snapshotHandler returns the latest telemetry frame and its sequence.
func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, ok := s.telemetry.Snapshot()
	writeJSON(w, map[string]any{
		"received": ok,
		"sequence": s.telemetry.LastSequence(),
		"frame":    snap,
	})
}

// statsHandler returns the telemetry channel counters.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.stats == nil {
		http.Error(w, "stats collection disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, s.stats.Snapshot())
}

// syncHandler returns the clock estimate from the startup synchronization.
func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.estimate == nil {
		http.Error(w, "no synchronization has run", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"avg_offset_nanos": s.estimate.AvgOffsetNanos,
		"avg_delay_nanos":  s.estimate.AvgDelayNanos,
		"samples":          len(s.estimate.Samples),
	})
}

// commandHandler forwards a JSON command body to the coprocessor.
func (s *Server) commandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.sender == nil {
		http.Error(w, "command channel disabled", http.StatusNotFound)
		return
	}

	body := http.MaxBytesReader(w, r.Body, vision.MaxDatagramSize)
	var cmd map[string]any
	if err := json.NewDecoder(body).Decode(&cmd); err != nil {
		http.Error(w, "invalid command body", http.StatusBadRequest)
		return
	}

	if err := s.sender.Send(cmd); err != nil {
		http.Error(w, "Failed to send command: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"sent": true})
}
