package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trainwatch/internal/config"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

// Message is a plain-text notification. Channels escape it for their markup.
type Message struct {
	Title    string
	Body     string
	Priority int
	URL      string
	URLTitle string
}

// Channel delivers a message to one external service.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Notifier sends best-effort notifications. It never reports failure to the
// caller; problems end up in the log.
type Notifier struct {
	channel Channel
	logger  *logrus.Logger
}

// NewNotifier wraps channel. A nil channel makes every message go to the log.
func NewNotifier(channel Channel, logger *logrus.Logger) *Notifier {
	return &Notifier{
		channel: channel,
		logger:  logger,
	}
}

// NewFromConfig picks the delivery channel from config. Missing credentials
// fall back to the log.
func NewFromConfig(cfg config.NotifyConfig, logger *logrus.Logger) *Notifier {
	var channel Channel

	switch cfg.Channel {
	case config.ChannelTelegram:
		if cfg.HasTelegram() {
			channel = NewTelegram(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.TelegramChatID)
		} else {
			logger.Warn(config.EnvTelegramToken + " and " + config.EnvTelegramChatID + " are not set, notifications go to the log")
		}
	case config.ChannelPushover:
		if cfg.HasPushover() {
			channel = NewPushover(cfg.PushoverToken, cfg.PushoverUser)
		} else {
			logger.Warn(config.EnvPushoverToken + " and " + config.EnvPushoverUser + " are not set, notifications go to the log")
		}
	case config.ChannelConsole:
	default:
		switch {
		case cfg.HasTelegram():
			channel = NewTelegram(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.TelegramChatID)
		case cfg.HasPushover():
			channel = NewPushover(cfg.PushoverToken, cfg.PushoverUser)
		}
	}

	return NewNotifier(channel, logger)
}

func (n *Notifier) ChannelName() string {
	if n.channel == nil {
		return config.ChannelConsole
	}
	return n.channel.Name()
}

func (n *Notifier) Send(ctx context.Context, msg Message) {
	if n.channel == nil {
		n.logger.WithFields(logrus.Fields{
			"title":   msg.Title,
			"message": msg.Body,
			"url":     msg.URL,
		}).Info("notification channel not configured")
		return
	}

	if err := n.channel.Deliver(ctx, msg); err != nil {
		n.logger.WithFields(logrus.Fields{
			"channel": n.channel.Name(),
			"title":   msg.Title,
			"error":   err,
		}).Error("failed to deliver notification")
		return
	}

	n.logger.WithFields(logrus.Fields{
		"channel": n.channel.Name(),
		"title":   msg.Title,
	}).Debug("notification sent")
}
