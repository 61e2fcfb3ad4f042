package manager

import (
	"testing"
	"time"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(4, nil)
	defer bus.Close()

	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	bus.Publish(Notification{Type: NotePortOpened, PortName: "/dev/ttyUSB0"})

	for name, ch := range map[string]<-chan Notification{"a": a, "b": b} {
		select {
		case note := <-ch:
			if note.Type != NotePortOpened || note.PortName != "/dev/ttyUSB0" {
				t.Errorf("subscriber %s got %+v", name, note)
			}
		case <-time.After(time.Second):
			t.Errorf("subscriber %s got nothing", name)
		}
	}
}

func TestBusCancelIsIdempotent(t *testing.T) {
	bus := NewBus(4, nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // Must not panic or double close

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Publishing after cancel must not reach the dead subscriber
	bus.Publish(Notification{Type: NotePortOpened})
}

func TestBusDropsWhenSubscriberLags(t *testing.T) {
	bus := NewBus(2, nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	// Fill the queue past capacity; the overflow is dropped, not blocking
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			bus.Publish(Notification{Type: NotePortRead})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a lagging subscriber")
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received != 2 {
				t.Errorf("received %d notifications, want 2 (queue capacity)", received)
			}
			return
		}
	}
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	bus := NewBus(4, nil)

	ch, cancel := bus.Subscribe()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after bus close")
	}
	cancel() // Safe after close
}

func TestNotificationTypeString(t *testing.T) {
	tests := []struct {
		typ      NotificationType
		expected string
	}{
		{NotePortOpened, "port_opened"},
		{NotePortClosed, "port_closed"},
		{NotePortRead, "port_read"},
		{NotePortError, "port_error"},
		{NotePortStatus, "port_status"},
	}

	for _, test := range tests {
		if got := test.typ.String(); got != test.expected {
			t.Errorf("NotificationType(%d).String() = %s, expected %s", test.typ, got, test.expected)
		}
	}
}

func TestCloseReasonString(t *testing.T) {
	tests := []struct {
		reason   CloseReason
		expected string
	}{
		{ReasonUserRequested, "UserRequested"},
		{ReasonConnectionLost, "ConnectionLost"},
		{ReasonError, "Error"},
	}

	for _, test := range tests {
		if got := test.reason.String(); got != test.expected {
			t.Errorf("CloseReason(%d).String() = %s, expected %s", test.reason, got, test.expected)
		}
	}
}
