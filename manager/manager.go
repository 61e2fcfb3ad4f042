// Package manager coordinates concurrent serial sessions: a registry of
// discovered ports, open/close/write/control operations, lifecycle handling
// and fan-out of session events to subscribers and the audit log.
//
// The registry is the only state shared across sessions. It is guarded by a
// single read/write lock whose write sections only touch the map, never
// hardware or storage.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/allbin/serialmux/serial"
	"github.com/allbin/serialmux/session"
	"github.com/allbin/serialmux/storage"
)

// Options tunes a manager. Zero values pick defaults.
type Options struct {
	PollInterval     time.Duration // modem status poll interval per session
	SubscriberBuffer int           // per-subscriber notification queue size
	Logger           *zap.Logger
}

// OpenRequest carries the parameters of an open operation. The string
// fields take the canonical tokens (Five..Eight, None/Odd/Even, One/Two,
// None/Software/Hardware) and are validated before any hardware action.
type OpenRequest struct {
	PortName    string
	BaudRate    int
	DataBits    string
	Parity      string
	StopBits    string
	FlowControl string
	InitialDTR  bool
	Timeout     time.Duration
}

// handle is the capability the registry holds while a session is alive
type handle struct {
	name           string
	sess           *session.Session
	sessionID      string
	fingerprint    string
	usb            *storage.USBIdentity
	closeRequested atomic.Bool
	errorSeen      atomic.Bool
}

// Manager owns the port registry and the live session handles. Construct
// one per application with New; it has no package-level state.
type Manager struct {
	log          *zap.Logger
	store        *storage.Store
	bus          *Bus
	pollInterval time.Duration

	mu      sync.RWMutex
	ports   map[string]*portEntry
	handles map[string]*handle

	// OS-facing hooks, replaced by mocks in tests
	listPorts  func() ([]string, error)
	portInfo   func(path string) (*serial.PortInfo, error)
	openDevice func(name string, opts []serial.Option) (session.Device, error)
}

// New creates a manager backed by the given audit store
func New(store *storage.Store, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		log:          opts.Logger,
		store:        store,
		bus:          NewBus(opts.SubscriberBuffer, opts.Logger),
		pollInterval: opts.PollInterval,
		ports:        make(map[string]*portEntry),
		handles:      make(map[string]*handle),
		listPorts:    serial.ListPorts,
		portInfo:     serial.GetPortInfo,
		openDevice: func(name string, opts []serial.Option) (session.Device, error) {
			port, err := serial.Open(name, opts...)
			if err != nil {
				return nil, err
			}
			return port, nil
		},
	}
}

// Subscribe registers a notification subscriber; see Bus.Subscribe
func (m *Manager) Subscribe() (<-chan Notification, func()) {
	return m.bus.Subscribe()
}

// Discover merges freshly enumerated ports into the registry and returns a
// snapshot of every known port, sorted by name. Known names are never
// removed, so byte counters and open status survive a device briefly
// disappearing from the bus.
func (m *Manager) Discover() ([]PortInfo, error) {
	paths, err := m.listPorts()
	if err != nil {
		return nil, wrapError(CodeIO, err, "list serial ports")
	}

	// Probe sysfs for ports we have not seen yet, outside the lock
	m.mu.RLock()
	var unknown []string
	for _, path := range paths {
		if _, ok := m.ports[path]; !ok {
			unknown = append(unknown, path)
		}
	}
	m.mu.RUnlock()

	probed := make(map[string]*serial.PortInfo, len(unknown))
	for _, path := range unknown {
		info, err := m.portInfo(path)
		if err != nil {
			m.log.Debug("failed to probe port", zap.String("port", path), zap.Error(err))
			continue
		}
		probed[path] = info
	}

	m.mu.Lock()
	var added []string
	for path, info := range probed {
		if existing, ok := m.ports[path]; ok {
			// Raced with another discovery; at most correct the transport
			if existing.desc.Transport == serial.TransportUnknown && info.Transport != serial.TransportUnknown {
				existing.desc.Transport = info.Transport
				existing.desc.USB = info.USB
			}
			continue
		}
		m.ports[path] = &portEntry{desc: PortDescriptor{
			Name:      path,
			Transport: info.Transport,
			USB:       info.USB,
		}}
		added = append(added, path)
	}
	rows := make([]PortInfo, 0, len(m.ports))
	for _, entry := range m.ports {
		rows = append(rows, entry.snapshot())
	}
	m.mu.Unlock()

	for _, path := range added {
		m.log.Info("discovered port", zap.String("port", path))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Descriptor.Name < rows[j].Descriptor.Name })
	return rows, nil
}

// Get returns the registry row for one port
func (m *Manager) Get(name string) (PortInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.ports[name]
	if !ok {
		return PortInfo{}, newError(CodeNoSuchPort, "no such port: %s", name)
	}
	return entry.snapshot(), nil
}

// Open configures and opens a port, spawns its session task and registers
// the handle. Fails without side effects when the name is unknown, already
// open, or a parameter token is invalid.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*OpenResult, error) {
	dataBits, err := parseDataBits(req.DataBits)
	if err != nil {
		return nil, err
	}
	parity, err := parseParity(req.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := parseStopBits(req.StopBits)
	if err != nil {
		return nil, err
	}
	flowControl, err := parseFlowControl(req.FlowControl)
	if err != nil {
		return nil, err
	}

	if _, err := m.Discover(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entry, known := m.ports[req.PortName]
	_, alreadyOpen := m.handles[req.PortName]
	var desc PortDescriptor
	if known {
		desc = entry.desc
	}
	m.mu.RUnlock()

	if !known {
		return nil, newError(CodeNoSuchPort, "no such port: %s", req.PortName)
	}
	if alreadyOpen {
		// The OS device node rejects a second open anyway; this check just
		// fails fast with a clear error before spawning anything.
		return nil, newError(CodeAlreadyOpen, "%s already opened", req.PortName)
	}

	opts := []serial.Option{
		serial.WithBaudRate(req.BaudRate),
		serial.WithDataBits(dataBits),
		serial.WithParity(parity),
		serial.WithStopBits(stopBits),
		serial.WithFlowControl(flowControl),
		serial.WithInitialDTR(req.InitialDTR),
		serial.WithReadTimeout(req.Timeout),
	}
	dev, err := m.openDevice(req.PortName, opts)
	if err != nil {
		return nil, wrapError(openErrorCode(err), err, "open %s", req.PortName)
	}

	h := &handle{
		name:        req.PortName,
		sessionID:   uuid.NewString(),
		fingerprint: deviceFingerprint(desc),
		usb:         usbIdentity(desc),
	}
	h.sess = session.Spawn(req.PortName, dev, session.Options{
		PollInterval: m.pollInterval,
		Logger:       m.log,
	})

	m.mu.Lock()
	if _, exists := m.handles[req.PortName]; exists {
		m.mu.Unlock()
		// Lost an open race; tear the fresh session down again. Its relays
		// still run so the channels drain, but they find the handle
		// unregistered and leave the registry alone.
		h.closeRequested.Store(true)
		go m.runRelays(h)
		_ = h.sess.Close(ctx)
		return nil, newError(CodeAlreadyOpen, "%s already opened", req.PortName)
	}
	m.handles[req.PortName] = h
	entry = m.ports[req.PortName]
	entry.opened = &OpenProfile{
		BaudRate:    req.BaudRate,
		DataBits:    dataBits,
		StopBits:    stopBits,
		Parity:      parity,
		FlowControl: flowControl,
		Timeout:     req.Timeout,
	}
	m.mu.Unlock()

	m.log.Info("port opened",
		zap.String("port", req.PortName),
		zap.String("session_id", h.sessionID),
		zap.Int("baud_rate", req.BaudRate),
		zap.String("data_bits", req.DataBits),
		zap.String("parity", req.Parity),
		zap.String("stop_bits", req.StopBits),
		zap.String("flow_control", req.FlowControl),
		zap.Duration("timeout", req.Timeout))
	m.bus.Publish(Notification{
		Type:        NotePortOpened,
		PortName:    req.PortName,
		TimestampMs: time.Now().UnixMilli(),
	})

	// Relays start only after the handle is registered and port_opened is
	// out, so a device that dies instantly still gets its registry row
	// cleaned up and its notifications delivered in order.
	go m.runRelays(h)

	return &OpenResult{SessionID: h.sessionID}, nil
}

// Close asks an open port's session to stop and waits for the ack
func (m *Manager) Close(ctx context.Context, name string) error {
	h, err := m.handleFor(name)
	if err != nil {
		return err
	}
	h.closeRequested.Store(true)
	if err := h.sess.Close(ctx); err != nil {
		return wrapError(commandErrorCode(err), err, "close port %s", name)
	}
	return nil
}

// Write sends a payload to an open port and waits until the session has
// attempted the write. messageID is caller-supplied and echoed in the audit
// trail for correlation.
func (m *Manager) Write(ctx context.Context, name, messageID string, data []byte) error {
	h, err := m.handleFor(name)
	if err != nil {
		return err
	}
	if err := h.sess.Write(ctx, messageID, data); err != nil {
		return wrapError(commandErrorCode(err), err, "write port %s", name)
	}
	return nil
}

// SetRTS changes the RTS line of an open port
func (m *Manager) SetRTS(ctx context.Context, name string, level bool) error {
	h, err := m.handleFor(name)
	if err != nil {
		return err
	}
	if err := h.sess.SetRTS(ctx, level); err != nil {
		return wrapError(commandErrorCode(err), err, "set RTS on %s", name)
	}
	return nil
}

// SetDTR changes the DTR line of an open port
func (m *Manager) SetDTR(ctx context.Context, name string, level bool) error {
	h, err := m.handleFor(name)
	if err != nil {
		return err
	}
	if err := h.sess.SetDTR(ctx, level); err != nil {
		return wrapError(commandErrorCode(err), err, "set DTR on %s", name)
	}
	return nil
}

// QueryLogs returns audit records for a session, newest first
func (m *Manager) QueryLogs(ctx context.Context, sessionID string, limit, offset int) ([]storage.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := m.store.QueryBySession(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, wrapError(CodeStorage, err, "query logs for session %s", sessionID)
	}
	return records, nil
}

// Shutdown closes every open session and the notification bus
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	open := make([]*handle, 0, len(m.handles))
	for _, h := range m.handles {
		open = append(open, h)
	}
	m.mu.RUnlock()

	for _, h := range open {
		h.closeRequested.Store(true)
		_ = h.sess.Close(ctx)
		select {
		case <-h.sess.Done():
		case <-ctx.Done():
		}
	}
	m.bus.Close()
}

// handleFor returns the live handle for a port, or a NotOpen error
func (m *Manager) handleFor(name string) (*handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.handles[name]
	if !ok {
		return nil, newError(CodeNotOpen, "port %s not opened", name)
	}
	return h, nil
}

// addBytes bumps a port's traffic counters
func (m *Manager) addBytes(name string, read, written uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.ports[name]; ok {
		entry.bytesRead += read
		entry.bytesWritten += written
	}
}

// runRelays consumes the three session output channels and, when all of
// them have drained, finishes the session's lifecycle. The write relay
// doubles as the closure signal because it is the last channel the session
// task closes no sooner than the others.
func (m *Manager) runRelays(h *handle) {
	readDone := make(chan struct{})
	statusDone := make(chan struct{})
	go func() {
		defer close(readDone)
		m.readRelay(h)
	}()
	go func() {
		defer close(statusDone)
		m.statusRelay(h)
	}()
	m.writeRelay(h)
	<-readDone
	<-statusDone
	m.finishSession(h)
}

// readRelay publishes inbound data and errors, persists RX audit rows and
// bumps the read counter
func (m *Manager) readRelay(h *handle) {
	for ev := range h.sess.Events() {
		switch ev.Kind {
		case session.EventData:
			m.bus.Publish(Notification{
				Type:        NotePortRead,
				PortName:    h.name,
				TimestampMs: ev.Timestamp,
				Data:        ev.Data,
			})
			if _, err := m.store.Insert(context.Background(), h.fingerprint, h.sessionID,
				h.usb, h.name, storage.DirectionRX, ev.Data); err != nil {
				m.log.Error("failed to log read",
					zap.String("port", h.name),
					zap.String("session_id", h.sessionID),
					zap.Error(err))
			}
			m.addBytes(h.name, uint64(len(ev.Data)), 0)
		case session.EventError:
			h.errorSeen.Store(true)
			m.bus.Publish(Notification{
				Type:        NotePortError,
				PortName:    h.name,
				TimestampMs: ev.Timestamp,
				Message:     ev.Err.Error(),
			})
		}
	}
}

// statusRelay mirrors modem line changes into the registry row and
// publishes them
func (m *Manager) statusRelay(h *handle) {
	for st := range h.sess.Status() {
		m.mu.Lock()
		if entry, ok := m.ports[h.name]; ok && entry.opened != nil {
			entry.opened.Modem = st
		}
		m.mu.Unlock()

		modem := st
		m.bus.Publish(Notification{
			Type:        NotePortStatus,
			PortName:    h.name,
			TimestampMs: time.Now().UnixMilli(),
			Modem:       &modem,
		})
	}
}

// writeRelay persists TX audit rows and bumps the write counter. Counters
// move even for failed writes so partial transfers stay observable.
func (m *Manager) writeRelay(h *handle) {
	for notice := range h.sess.Writes() {
		m.addBytes(h.name, 0, uint64(len(notice.Data)))
		if _, err := m.store.Insert(context.Background(), h.fingerprint, h.sessionID,
			h.usb, h.name, storage.DirectionTX, notice.Data); err != nil {
			m.log.Error("failed to log write",
				zap.String("port", h.name),
				zap.String("session_id", h.sessionID),
				zap.String("message_id", notice.MessageID),
				zap.Error(err))
		}
	}
}

// finishSession flips the registry row to closed and evicts the handle,
// in that order and inside one write-lock section so no concurrent open
// can observe a torn state, then reports why the session ended.
func (m *Manager) finishSession(h *handle) {
	m.mu.Lock()
	registered := m.handles[h.name] == h
	if registered {
		if entry, ok := m.ports[h.name]; ok {
			entry.opened = nil
		}
		delete(m.handles, h.name)
	}
	m.mu.Unlock()

	if !registered {
		return
	}

	reason := ReasonConnectionLost
	if h.closeRequested.Load() {
		reason = ReasonUserRequested
	} else if h.errorSeen.Load() {
		reason = ReasonError
	}

	m.log.Info("port closed",
		zap.String("port", h.name),
		zap.String("session_id", h.sessionID),
		zap.Stringer("reason", reason))
	m.bus.Publish(Notification{
		Type:        NotePortClosed,
		PortName:    h.name,
		TimestampMs: time.Now().UnixMilli(),
		Reason:      reason,
	})
}

// usbIdentity extracts the optional USB audit columns from a descriptor
func usbIdentity(desc PortDescriptor) *storage.USBIdentity {
	if desc.USB == nil {
		return nil
	}
	return &storage.USBIdentity{
		VID:          fmt.Sprintf("%04X", desc.USB.VID),
		PID:          fmt.Sprintf("%04X", desc.USB.PID),
		SerialNumber: desc.USB.SerialNumber,
	}
}
