// Package framelog records telemetry frames and loss events to a sqlite
// file for post-match analysis. Recording is optional; the receiver runs
// fine without it.
package framelog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Log is an open frame recording database.
type Log struct {
	db *sql.DB
}

// Frame is one recorded telemetry frame.
type Frame struct {
	FrameID      int64
	PacketNumber int64
	Payload      string
	ReceivedAt   time.Time
}

// LossEvent is one recorded loss detection.
type LossEvent struct {
	LossID     int64
	FromPacket int64
	ToPacket   int64
	DetectedAt time.Time
}

// Open opens (creating if needed) the recording database at path and brings
// the schema up to date.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("framelog: open %s: %w", path, err)
	}

	// sqlite allows a single writer; the receiver is the only one.
	db.SetMaxOpenConns(1)

	l := &Log{db: db}
	if err := l.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// RecordFrame stores one received frame. The payload is kept verbatim so
// fields the robot code never read are still available afterwards.
func (l *Log) RecordFrame(packetNumber int64, payload []byte) error {
	_, err := l.db.Exec(
		`INSERT INTO frames (packet_number, payload) VALUES (?, ?)`,
		packetNumber, string(payload),
	)
	if err != nil {
		return fmt.Errorf("framelog: record frame: %w", err)
	}
	return nil
}

// RecordLoss stores one loss event covering the inclusive packet range.
func (l *Log) RecordLoss(from, to int64) error {
	_, err := l.db.Exec(
		`INSERT INTO loss_events (from_packet, to_packet) VALUES (?, ?)`,
		from, to,
	)
	if err != nil {
		return fmt.Errorf("framelog: record loss: %w", err)
	}
	return nil
}

// FrameCount returns the number of recorded frames.
func (l *Log) FrameCount() (int64, error) {
	var n int64
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM frames`).Scan(&n); err != nil {
		return 0, fmt.Errorf("framelog: count frames: %w", err)
	}
	return n, nil
}

// RecentFrames returns up to limit frames, newest first.
func (l *Log) RecentFrames(limit int) ([]Frame, error) {
	rows, err := l.db.Query(
		`SELECT frame_id, packet_number, payload, received_at
		 FROM frames ORDER BY frame_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("framelog: query frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		if err := rows.Scan(&f.FrameID, &f.PacketNumber, &f.Payload, &f.ReceivedAt); err != nil {
			return nil, fmt.Errorf("framelog: scan frame: %w", err)
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// LossEvents returns all recorded loss events, oldest first.
func (l *Log) LossEvents() ([]LossEvent, error) {
	rows, err := l.db.Query(
		`SELECT loss_id, from_packet, to_packet, detected_at
		 FROM loss_events ORDER BY loss_id`)
	if err != nil {
		return nil, fmt.Errorf("framelog: query loss events: %w", err)
	}
	defer rows.Close()

	var events []LossEvent
	for rows.Next() {
		var e LossEvent
		if err := rows.Scan(&e.LossID, &e.FromPacket, &e.ToPacket, &e.DetectedAt); err != nil {
			return nil, fmt.Errorf("framelog: scan loss event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
