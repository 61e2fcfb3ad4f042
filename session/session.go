package session

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/allbin/serialmux/serial"
)

// ErrSessionClosed is returned by sender methods once the session task has
// exited. Callers must treat it the same as commanding a port that was
// never open.
var ErrSessionClosed = errors.New("session closed")

// Device is the hardware surface a session task owns exclusively.
// serial.Port satisfies it; tests provide mocks. Close must unblock a
// pending Read.
type Device interface {
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Close() error
	SetRTS(state bool) error
	SetDTR(state bool) error
	GetModemSignals() (serial.ModemSignals, error)
}

// State is the lifecycle state of a session task
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Channel capacities and loop defaults
const (
	commandQueueCap = 32
	eventQueueCap   = 32
	writeNoticeCap  = 10
	statusQueueCap  = 4

	defaultReadBufferSize = 1024
	defaultPollInterval   = time.Second

	// Pause after an empty read so a port opened with a zero timeout,
	// where reads return immediately, does not spin a core.
	readRetryDelay = 5 * time.Millisecond
)

// Options tunes a session task. Zero values pick the defaults above.
type Options struct {
	PollInterval   time.Duration
	ReadBufferSize int
	Logger         *zap.Logger
}

// Session owns one open port. All hardware access happens on the single
// loop goroutine; callers talk to it through the bounded command queue and
// consume the outbound channels. Exactly one branch of the loop's multiplex
// runs per iteration, which is what makes the device access race-free
// without a lock around every I/O call.
type Session struct {
	name string
	dev  Device
	log  *zap.Logger

	pollInterval time.Duration
	readBufSize  int

	cmds   chan command
	events chan Event
	status chan ModemStatus
	writes chan WriteNotice
	done   chan struct{}

	state atomic.Int32
}

// Spawn starts the task for an already-configured device. The returned
// session is Running: commands are accepted as soon as Spawn returns.
func Spawn(name string, dev Device, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = defaultReadBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		name:         name,
		dev:          dev,
		log:          opts.Logger.With(zap.String("port", name)),
		pollInterval: opts.PollInterval,
		readBufSize:  opts.ReadBufferSize,
		cmds:         make(chan command, commandQueueCap),
		events:       make(chan Event, eventQueueCap),
		status:       make(chan ModemStatus, statusQueueCap),
		writes:       make(chan WriteNotice, writeNoticeCap),
		done:         make(chan struct{}),
	}
	s.state.Store(int32(StateStarting))

	go s.run()
	return s
}

// Name returns the port name the session is bound to
func (s *Session) Name() string { return s.name }

// State returns the current lifecycle state
func (s *Session) State() State { return State(s.state.Load()) }

// Events returns the ordered stream of data/error events. Closed when the
// task drains.
func (s *Session) Events() <-chan Event { return s.events }

// Status returns modem line snapshots, published only when a polled line
// changed. Closed when the task drains.
func (s *Session) Status() <-chan ModemStatus { return s.status }

// Writes returns a notice per completed write attempt. Closed when the
// task drains.
func (s *Session) Writes() <-chan WriteNotice { return s.writes }

// Done is closed when the task has released the device and exited
func (s *Session) Done() <-chan struct{} { return s.done }

// Write enqueues a payload and blocks until the task has attempted the
// write. The returned error is the write attempt's outcome; a failed write
// does not terminate the session.
func (s *Session) Write(ctx context.Context, messageID string, data []byte) error {
	return s.send(ctx, command{kind: cmdWrite, messageID: messageID, data: data, ack: make(chan error, 1)})
}

// SetRTS enqueues a control-line change and waits until it was attempted
func (s *Session) SetRTS(ctx context.Context, level bool) error {
	return s.send(ctx, command{kind: cmdSetRTS, level: level, ack: make(chan error, 1)})
}

// SetDTR enqueues a control-line change and waits until it was attempted
func (s *Session) SetDTR(ctx context.Context, level bool) error {
	return s.send(ctx, command{kind: cmdSetDTR, level: level, ack: make(chan error, 1)})
}

// Close asks the task to stop. The ack arrives before the drain begins;
// commands still queued behind the close are never serviced.
func (s *Session) Close(ctx context.Context) error {
	return s.send(ctx, command{kind: cmdClose, ack: make(chan error, 1)})
}

// send enqueues a command and waits for its acknowledgment. Fails fast with
// ErrSessionClosed when the task has already exited.
func (s *Session) send(ctx context.Context, cmd command) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	if cmd.ack == nil {
		return nil
	}

	select {
	case err := <-cmd.ack:
		return err
	case <-s.done:
		// The task exited; a buffered ack may still have been delivered
		// just before the drain (a close command acks itself this way).
		select {
		case err := <-cmd.ack:
			return err
		default:
			return ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readChunk is what the reader pump hands to the loop
type readChunk struct {
	data []byte
	err  error
}

// run is the cooperative loop. It multiplexes exactly three sources: the
// reader pump, the command queue and the status poll ticker.
func (s *Session) run() {
	defer s.teardown()

	readCh := make(chan readChunk)
	go s.readPump(readCh)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.state.Store(int32(StateRunning))
	s.log.Info("session running",
		zap.Duration("poll_interval", s.pollInterval),
		zap.Int("read_buffer", s.readBufSize))

	var last ModemStatus

	for {
		select {
		case chunk := <-readCh:
			if len(chunk.data) > 0 {
				s.events <- Event{Kind: EventData, Data: chunk.data, Timestamp: timestampMillis()}
			}
			if chunk.err != nil {
				if chunk.err != io.EOF {
					s.log.Error("serial read failed", zap.Error(chunk.err))
					s.events <- Event{Kind: EventError, Err: chunk.err, Timestamp: timestampMillis()}
				} else {
					s.log.Info("serial stream ended")
				}
				return
			}

		case cmd := <-s.cmds:
			switch cmd.kind {
			case cmdWrite:
				err := s.writeAll(cmd.data)
				cmd.reply(err)
				s.writes <- WriteNotice{MessageID: cmd.messageID, Data: cmd.data}
				if err != nil {
					// Recoverable: the caller sees the error through the
					// ack, the session keeps running.
					s.log.Warn("serial write failed",
						zap.String("message_id", cmd.messageID),
						zap.Int("len", len(cmd.data)),
						zap.Error(err))
				}
			case cmdSetRTS:
				if err := s.dev.SetRTS(cmd.level); err != nil {
					s.log.Warn("set RTS failed", zap.Bool("level", cmd.level), zap.Error(err))
				}
				cmd.reply(nil)
			case cmdSetDTR:
				if err := s.dev.SetDTR(cmd.level); err != nil {
					s.log.Warn("set DTR failed", zap.Bool("level", cmd.level), zap.Error(err))
				}
				cmd.reply(nil)
			case cmdClose:
				cmd.reply(nil)
				return
			}

		case <-ticker.C:
			sig, err := s.dev.GetModemSignals()
			if err != nil {
				s.log.Debug("modem status poll failed", zap.Error(err))
				continue
			}
			st := statusFromSignals(sig)
			if st != last {
				last = st
				s.status <- st
			}
		}
	}
}

// readPump performs the blocking hardware reads on its own goroutine and
// feeds the loop. A (0, nil) read is a VTIME timeout and polls again after
// a short pause.
func (s *Session) readPump(out chan<- readChunk) {
	buf := make([]byte, s.readBufSize)
	for {
		n, err := s.dev.Read(buf)
		if n == 0 && err == nil {
			select {
			case <-s.done:
				return
			case <-time.After(readRetryDelay):
				continue
			}
		}

		chunk := readChunk{err: err}
		if n > 0 {
			chunk.data = append([]byte(nil), buf[:n]...)
		}

		select {
		case out <- chunk:
		case <-s.done:
			return
		}

		if err != nil {
			return
		}
	}
}

// writeAll performs a full blocking write of the payload
func (s *Session) writeAll(data []byte) error {
	for len(data) > 0 {
		n, err := s.dev.Write(data)
		if err != nil {
			return err
		}
		if n <= 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}

// teardown is the Draining -> Closed transition: release the hardware
// handle, fail pending senders fast, close the outbound channels. Runs
// exactly once, on the loop goroutine.
func (s *Session) teardown() {
	s.state.Store(int32(StateDraining))

	if err := s.dev.Close(); err != nil && err != serial.ErrPortClosed {
		s.log.Debug("device close failed", zap.Error(err))
	}

	close(s.done)
	close(s.events)
	close(s.status)
	close(s.writes)

	s.state.Store(int32(StateClosed))
	s.log.Info("session closed")
}
