package vision

import (
	"sync"

	"github.com/Team537/RobotCode2026/internal/monitoring"
)

// StatsRecorder collects telemetry channel counters.
type StatsRecorder interface {
	AddPacket(bytes int)
	AddDecodeError()
	AddLoss(frames int64)
	LogStats()
}

// noopStats is a StatsRecorder implementation that does nothing. It is used
// as a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddPacket(bytes int)  {}
func (noopStats) AddDecodeError()      {}
func (noopStats) AddLoss(frames int64) {}
func (noopStats) LogStats()            {}

// PacketStats is the standard StatsRecorder: counters over the life of the
// receiver, safe for concurrent use.
type PacketStats struct {
	mu           sync.Mutex
	packets      int64
	bytes        int64
	decodeErrors int64
	lossEvents   int64
	framesLost   int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Packets      int64 `json:"packets"`
	Bytes        int64 `json:"bytes"`
	DecodeErrors int64 `json:"decode_errors"`
	LossEvents   int64 `json:"loss_events"`
	FramesLost   int64 `json:"frames_lost"`
}

// NewPacketStats returns a zeroed PacketStats.
func NewPacketStats() *PacketStats {
	return &PacketStats{}
}

// AddPacket records one received datagram of the given size.
func (s *PacketStats) AddPacket(bytes int) {
	s.mu.Lock()
	s.packets++
	s.bytes += int64(bytes)
	s.mu.Unlock()
}

// AddDecodeError records one datagram dropped because it failed to decode.
func (s *PacketStats) AddDecodeError() {
	s.mu.Lock()
	s.decodeErrors++
	s.mu.Unlock()
}

// AddLoss records one detected loss event. The frame count is only
// accumulated when positive; a sequence regression still counts as an
// event but contributes no meaningful frame total.
func (s *PacketStats) AddLoss(frames int64) {
	s.mu.Lock()
	s.lossEvents++
	if frames > 0 {
		s.framesLost += frames
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *PacketStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Packets:      s.packets,
		Bytes:        s.bytes,
		DecodeErrors: s.decodeErrors,
		LossEvents:   s.lossEvents,
		FramesLost:   s.framesLost,
	}
}

// LogStats writes the current counters to the diagnostic log.
func (s *PacketStats) LogStats() {
	snap := s.Snapshot()
	monitoring.Logf("telemetry stats: %d packets (%d bytes), %d decode errors, %d loss events (%d frames)",
		snap.Packets, snap.Bytes, snap.DecodeErrors, snap.LossEvents, snap.FramesLost)
}
