package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SearchRequest describes one departure search. Date is sent as-is.
type SearchRequest struct {
	Origin      string
	Destination string
	Date        string   // YYYY-MM-DD
	Passengers  []string // passenger categories, e.g. ADULT
}

func (r SearchRequest) Validate() error {
	if r.Origin == "" || r.Destination == "" || r.Date == "" {
		return fmt.Errorf("%w: origin, destination, and date are required", ErrInvalidRequest)
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("%w: date %q is not a calendar date", ErrInvalidRequest, r.Date)
	}
	if len(r.Passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", ErrInvalidRequest)
	}
	for _, p := range r.Passengers {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty passenger category", ErrInvalidRequest)
		}
	}
	return nil
}

type searchPayload struct {
	Origin        string             `json:"origin"`
	Destination   string             `json:"destination"`
	DepartureDate string             `json:"departureDate"`
	Passengers    []passengerPayload `json:"passengers"`
}

type passengerPayload struct {
	PassengerCategory struct {
		Type string `json:"type"`
	} `json:"passengerCategory"`
}

func newSearchPayload(r SearchRequest) searchPayload {
	p := searchPayload{
		Origin:        r.Origin,
		Destination:   r.Destination,
		DepartureDate: r.Date,
		Passengers:    make([]passengerPayload, 0, len(r.Passengers)),
	}
	for _, category := range r.Passengers {
		var pp passengerPayload
		pp.PassengerCategory.Type = category
		p.Passengers = append(p.Passengers, pp)
	}
	return p
}

// Journey is one candidate service returned by a search.
type Journey struct {
	ID                 string
	Departure          string // ISO 8601, may be empty
	Arrival            string // ISO 8601, may be empty; see Legs
	Legs               []Leg
	UnavailableReasons []string
}

// Leg is one segment of a journey. Often only the last leg carries an arrival.
type Leg struct {
	Departure string
	Arrival   string
}

type Price struct {
	Amount   float64
	Currency string
}

func (p Price) String() string {
	amount := strconv.FormatFloat(p.Amount, 'f', -1, 64)
	if p.Currency == "" {
		return amount
	}
	return amount + " " + p.Currency
}

// Partition is the offer summary of one fare class (seats, beds, ...).
type Partition struct {
	Name      string
	Available bool
	Price     *Price // nil when unknown
}

type OfferResult struct {
	JourneyID   string
	Available   bool
	LowestPrice *Price // nil when no available partition reported a price
	Partitions  []Partition
}

// PriceText returns the lowest price or "Unknown".
func (o *OfferResult) PriceText() string {
	if o == nil || o.LowestPrice == nil {
		return "Unknown"
	}
	return o.LowestPrice.String()
}

// Place is a station returned by the typeahead lookup.
type Place struct {
	ID   string
	Name string
}
