package monitor

import (
	"fmt"
	"strings"

	"github.com/danpilch/trainwatch/internal/api/booking"
	"github.com/danpilch/trainwatch/internal/config"
	"github.com/danpilch/trainwatch/internal/notify"
)

// alertEvent lives only while an alert is formatted and sent.
type alertEvent struct {
	trip      config.TripConfig
	journey   booking.Journey
	departure string // empty when the backend reports none
	arrival   string
	offer     *booking.OfferResult
	link      string
}

func alertMessage(e alertEvent) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Train found: %s\n", e.trip.Route())
	fmt.Fprintf(&b, "Date: %s\n", e.trip.Date)
	if e.departure != "" {
		fmt.Fprintf(&b, "Depart: %s\n", e.departure)
	}
	fmt.Fprintf(&b, "Arrive: %s\n", e.arrival)
	fmt.Fprintf(&b, "Price: %s", e.offer.PriceText())

	for _, p := range e.offer.Partitions {
		if !p.Available {
			continue
		}
		price := "Unknown"
		if p.Price != nil {
			price = p.Price.String()
		}
		fmt.Fprintf(&b, "\n  %s: %s", p.Name, price)
	}

	return notify.Message{
		Title:    "TICKETS RELEASED!",
		Body:     b.String(),
		Priority: notify.PriorityHigh,
		URL:      e.link,
		URLTitle: "Buy Now",
	}
}

func heartbeatMessage(trip config.TripConfig, status string) notify.Message {
	return notify.Message{
		Title:    "Watchdog Report",
		Body:     fmt.Sprintf("Checking %s on %s.\nStatus: %s", trip.Route(), trip.Date, status),
		Priority: notify.PriorityNormal,
	}
}

func joinCodes(codes []string) string {
	return strings.Join(codes, ", ")
}
