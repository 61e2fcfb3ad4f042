package manager

import (
	"sync"

	"go.uber.org/zap"

	"github.com/allbin/serialmux/session"
)

// NotificationType identifies the event surface pushed to subscribers
type NotificationType int

const (
	NotePortOpened NotificationType = iota
	NotePortClosed
	NotePortRead
	NotePortError
	NotePortStatus
)

// String returns the wire name of the notification type
func (t NotificationType) String() string {
	switch t {
	case NotePortOpened:
		return "port_opened"
	case NotePortClosed:
		return "port_closed"
	case NotePortRead:
		return "port_read"
	case NotePortError:
		return "port_error"
	default:
		return "port_status"
	}
}

// CloseReason distinguishes user-requested closes from unsolicited ones
type CloseReason int

const (
	ReasonUserRequested CloseReason = iota
	ReasonConnectionLost
	ReasonError
)

// String returns the wire name of the close reason
func (r CloseReason) String() string {
	switch r {
	case ReasonUserRequested:
		return "UserRequested"
	case ReasonError:
		return "Error"
	default:
		return "ConnectionLost"
	}
}

// Notification is one event delivered to subscribers. Only the fields
// relevant to Type are set.
type Notification struct {
	Type        NotificationType
	PortName    string
	TimestampMs int64
	Data        []byte               // port_read
	Message     string               // port_error
	Reason      CloseReason          // port_closed
	Modem       *session.ModemStatus // port_status
}

// Bus fans notifications out to subscribers. Delivery is fire-and-forget
// over bounded queues: a slow subscriber lags and eventually drops (with a
// logged warning) but never blocks a session task.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Notification
	nextID int
	buffer int
	log    *zap.Logger
}

// NewBus creates a bus whose subscriber queues hold up to buffer entries
func NewBus(buffer int, log *zap.Logger) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[int]chan Notification),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel; it is safe to call more
// than once.
func (b *Bus) Subscribe() (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Notification, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers a notification to every live subscriber without blocking
func (b *Bus) Publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- n:
		default:
			b.log.Warn("subscriber queue full, dropping notification",
				zap.Int("subscriber", id),
				zap.Stringer("type", n.Type),
				zap.String("port", n.PortName))
		}
	}
}

// Close removes and closes every subscription
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
