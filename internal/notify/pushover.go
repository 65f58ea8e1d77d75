package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/gregdel/pushover"
)

type Pushover struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

func NewPushover(token, userKey string) *Pushover {
	return &Pushover{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
	}
}

func (p *Pushover) Name() string { return "pushover" }

func (p *Pushover) Deliver(_ context.Context, msg Message) error {
	if _, err := p.app.SendMessage(pushoverMessage(msg), p.recipient); err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}
	return nil
}

// pushoverMessage renders msg with HTML formatting on. Pushover never renders
// the title as HTML, so only the body is escaped.
func pushoverMessage(msg Message) *pushover.Message {
	m := pushover.NewMessageWithTitle(html.EscapeString(msg.Body), msg.Title)
	m.HTML = true
	m.Priority = msg.Priority
	m.URL = msg.URL
	m.URLTitle = msg.URLTitle
	return m
}
