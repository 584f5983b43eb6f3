package delivery

import (
	"context"
	"fmt"
)

// Message is what the external channel needs to deliver one email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Channel is the external delivery channel. Send returns the provider's
// message identifier.
type Channel interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Error is a rejected or failed send, carrying the provider's message.
type Error struct {
	Recipient string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "delivery failed"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a delivery error for recipient.
func Errorf(recipient, format string, args ...any) *Error {
	return &Error{Recipient: recipient, Err: fmt.Errorf(format, args...)}
}
