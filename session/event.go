package session

import (
	"time"

	"github.com/allbin/serialmux/serial"
)

// EventKind identifies the variants of the session event union
type EventKind int

const (
	// EventData carries bytes received from the hardware
	EventData EventKind = iota
	// EventError reports a read failure; it is always the last event
	// before the session drains
	EventError
)

// Event is one entry in the session's outbound stream. Events are emitted
// strictly in the order the loop produced them.
type Event struct {
	Kind      EventKind
	Data      []byte
	Err       error
	Timestamp int64 // epoch millis
}

// ModemStatus is a snapshot of the four polled modem input lines
type ModemStatus struct {
	CD   bool // Carrier Detect
	CTS  bool // Clear To Send
	DSR  bool // Data Set Ready
	Ring bool // Ring Indicator
}

// statusFromSignals projects the polled input lines out of a full signal set
func statusFromSignals(s serial.ModemSignals) ModemStatus {
	return ModemStatus{
		CD:   s.DCD,
		CTS:  s.CTS,
		DSR:  s.DSR,
		Ring: s.RI,
	}
}

// timestampMillis returns the current time in epoch milliseconds
func timestampMillis() int64 {
	return time.Now().UnixMilli()
}
