// Package mailer renders transactional emails and hands them to a delivery backend.
package mailer

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

// ErrNoRecipient is returned when a message has no usable recipient address.
var ErrNoRecipient = errors.New("mailer: message has no recipient")

// Message is a rendered email ready for delivery.
type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

// Validate checks the message can be delivered.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To.Address) == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(m.To.Address); err != nil {
		return err
	}
	return nil
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
