package session

// commandKind identifies the variants of the session command union
type commandKind int

const (
	cmdWrite commandKind = iota
	cmdSetRTS
	cmdSetDTR
	cmdClose
)

// command is one entry in the session's inbound queue. The ack channel is
// optional: synchronous callers attach a buffered channel of capacity 1,
// fire-and-forget senders leave it nil.
type command struct {
	kind      commandKind
	messageID string
	data      []byte
	level     bool
	ack       chan error
}

// reply delivers the command's outcome to a waiting caller, if any.
// The ack channel is buffered so this never blocks the loop.
func (c command) reply(err error) {
	if c.ack != nil {
		c.ack <- err
	}
}

// WriteNotice reports a completed write attempt. Data is the full payload
// that was attempted, whether or not the write succeeded, so byte counters
// and the audit log observe failed writes too.
type WriteNotice struct {
	MessageID string
	Data      []byte
}
