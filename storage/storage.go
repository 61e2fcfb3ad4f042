// Package storage persists serial traffic as an append-only audit log in
// SQLite. Rows are immutable once written and outlive the sessions that
// produced them; no update or delete is exposed.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Transfer directions recorded in the log
const (
	DirectionRX = "RX"
	DirectionTX = "TX"
)

const schema = `
CREATE TABLE IF NOT EXISTS logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    device_fingerprint TEXT NOT NULL,
    session_id TEXT NOT NULL,
    vid TEXT,
    pid TEXT,
    serial_number TEXT,
    port_name TEXT NOT NULL,
    direction TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    data BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_id ON logs(session_id);
CREATE INDEX IF NOT EXISTS idx_device_fingerprint ON logs(device_fingerprint);
`

// Record is one persisted transfer. VID/PID/SerialNumber are empty for
// non-USB transports.
type Record struct {
	ID                int64
	DeviceFingerprint string
	SessionID         string
	VID               string
	PID               string
	SerialNumber      string
	PortName          string
	Direction         string
	TimestampMs       int64
	Data              []byte
}

// USBIdentity carries the optional USB columns of a record
type USBIdentity struct {
	VID          string
	PID          string
	SerialNumber string
}

// Store is the append-only audit log. A single Store is safely shared
// across sessions; the database serializes writes internally.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the audit database at path
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	return open(dsn, path)
}

// OpenMemory opens a throwaway in-memory store, used by tests
func OpenMemory() (*Store, error) {
	return open("file::memory:?mode=memory", ":memory:")
}

func open(dsn, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// table-lock errors under concurrent session traffic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database location
func (s *Store) Path() string { return s.path }

// Close releases the database connection
func (s *Store) Close() error { return s.db.Close() }

// Insert appends one transfer and returns the store-assigned record id
func (s *Store) Insert(ctx context.Context, fingerprint, sessionID string, usb *USBIdentity, portName, direction string, data []byte) (int64, error) {
	var vid, pid, serialNumber sql.NullString
	if usb != nil {
		vid = sql.NullString{String: usb.VID, Valid: usb.VID != ""}
		pid = sql.NullString{String: usb.PID, Valid: usb.PID != ""}
		serialNumber = sql.NullString{String: usb.SerialNumber, Valid: usb.SerialNumber != ""}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (device_fingerprint, session_id, vid, pid, serial_number, port_name, direction, timestamp, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fingerprint, sessionID, vid, pid, serialNumber, portName, direction,
		time.Now().UnixMilli(), data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted log id: %w", err)
	}
	return id, nil
}

// QueryBySession returns records for a session, newest first
func (s *Store) QueryBySession(ctx context.Context, sessionID string, limit, offset int) ([]Record, error) {
	return s.query(ctx, "session_id", sessionID, limit, offset)
}

// QueryByDevice returns records for a device fingerprint, newest first
func (s *Store) QueryByDevice(ctx context.Context, fingerprint string, limit, offset int) ([]Record, error) {
	return s.query(ctx, "device_fingerprint", fingerprint, limit, offset)
}

func (s *Store) query(ctx context.Context, column, value string, limit, offset int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_fingerprint, session_id,
		        COALESCE(vid, ''), COALESCE(pid, ''), COALESCE(serial_number, ''),
		        port_name, direction, timestamp, data
		 FROM logs WHERE `+column+` = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ? OFFSET ?`,
		value, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs by %s: %w", column, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.DeviceFingerprint, &r.SessionID,
			&r.VID, &r.PID, &r.SerialNumber,
			&r.PortName, &r.Direction, &r.TimestampMs, &r.Data); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
