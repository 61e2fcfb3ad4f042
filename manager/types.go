package manager

import (
	"time"

	"github.com/allbin/serialmux/serial"
	"github.com/allbin/serialmux/session"
)

// PortDescriptor is the discovery identity of a port. Immutable once
// created for a given name except for transport corrections on rediscovery.
type PortDescriptor struct {
	Name      string
	Transport serial.TransportKind
	USB       *serial.USBInfo // non-nil only for USB transports
}

// OpenProfile describes the negotiated line parameters of an open port plus
// the last published modem line snapshot
type OpenProfile struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      serial.Parity
	FlowControl serial.FlowControl
	Modem       session.ModemStatus
	Timeout     time.Duration
}

// PortInfo is one registry row: descriptor, status and traffic counters.
// Opened is nil while the port is closed. Values returned by the manager
// are snapshots; mutating them has no effect on the registry.
type PortInfo struct {
	Descriptor   PortDescriptor
	Opened       *OpenProfile
	BytesRead    uint64
	BytesWritten uint64
}

// IsOpen reports whether a live session owns the port
func (p PortInfo) IsOpen() bool { return p.Opened != nil }

// OpenResult is returned by Open so callers can scope audit queries
type OpenResult struct {
	SessionID string
}

// portEntry is the registry's internal mutable row
type portEntry struct {
	desc         PortDescriptor
	opened       *OpenProfile
	bytesRead    uint64
	bytesWritten uint64
}

// snapshot copies an entry into the exported row shape
func (e *portEntry) snapshot() PortInfo {
	info := PortInfo{
		Descriptor:   e.desc,
		BytesRead:    e.bytesRead,
		BytesWritten: e.bytesWritten,
	}
	if e.opened != nil {
		profile := *e.opened
		info.Opened = &profile
	}
	return info
}
