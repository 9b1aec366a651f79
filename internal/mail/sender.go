package mail

import "context"

// Message is a rendered email ready for delivery.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers messages. Implementations are chosen at startup.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
