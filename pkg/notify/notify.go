package notify

import (
	"context"
	"errors"
	"strings"
)

// Message is a plain-text notification addressed to a single recipient.
type Message struct {
	To      string
	Name    string
	Subject string
	Text    string
}

// Notifier delivers messages over one channel.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoChannel is returned when no notifier is configured for an address.
var ErrNoChannel = errors.New("no notification channel for address")

// Dispatcher routes messages to e-mail when the address has a local part before '@'
// and to Telegram otherwise.
type Dispatcher struct {
	Email    Notifier
	Telegram Notifier
}

// Send implements Notifier.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return ErrNoChannel
	}
	msg.To = to
	if IsEmail(to) {
		if d.Email == nil {
			return ErrNoChannel
		}
		return d.Email.Send(ctx, msg)
	}
	if d.Telegram == nil {
		return ErrNoChannel
	}
	return d.Telegram.Send(ctx, msg)
}

// IsEmail reports whether addr looks like an e-mail address. Telegram @channel
// names start with '@' and are not e-mail.
func IsEmail(addr string) bool {
	return strings.Index(addr, "@") > 0
}

// Nop discards every message.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(context.Context, Message) error { return nil }
