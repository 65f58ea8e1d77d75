package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/trainwatch/internal/api/booking"
	"github.com/danpilch/trainwatch/internal/config"
	"github.com/danpilch/trainwatch/internal/match"
	"github.com/danpilch/trainwatch/internal/notify"
)

type State string

const (
	StateStart       State = "START"
	StateSearching   State = "SEARCHING"
	StateNoResults   State = "NO_RESULTS"
	StateMatching    State = "MATCHING"
	StateNoMatch     State = "NO_MATCH"
	StateResolving   State = "RESOLVING"
	StateAlerted     State = "ALERTED"
	StateUnavailable State = "UNAVAILABLE"
	StateDone        State = "DONE"
)

type Searcher interface {
	Search(ctx context.Context, req booking.SearchRequest) ([]booking.Journey, error)
}

type OfferResolver interface {
	Offers(ctx context.Context, journeyID string) (*booking.OfferResult, error)
}

type Sender interface {
	Send(ctx context.Context, msg notify.Message)
}

// Result summarises one invocation.
type Result struct {
	RunID     string
	Outcome   State   // last state before DONE
	Path      []State // every state visited, DONE included
	Journeys  int
	Matches   int
	Alerts    int
	Heartbeat bool
	Err       error   // invocation-level failure
	Failures  []error // per-journey offer failures; they never abort the run
}

func (r Result) OK() bool { return r.Err == nil }

func (r *Result) enter(s State) {
	r.Path = append(r.Path, s)
	if s != StateDone {
		r.Outcome = s
	}
}

type Watchdog struct {
	cfg      *config.Config
	searcher Searcher
	offers   OfferResolver
	notifier Sender
	window   match.Window
	logger   *logrus.Logger
	now      func() time.Time
}

type Option func(*Watchdog)

// WithClock overrides the clock used to decide heartbeat days.
func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) { w.now = now }
}

func NewWatchdog(cfg *config.Config, searcher Searcher, offers OfferResolver, notifier Sender, logger *logrus.Logger, opts ...Option) (*Watchdog, error) {
	window, err := match.NewWindow(
		cfg.ArrivalWindow.After, cfg.ArrivalWindow.Before,
		cfg.ArrivalWindow.IncludeAfter, cfg.ArrivalWindow.IncludeBefore,
	)
	if err != nil {
		return nil, &config.ConfigurationError{Problems: []string{"arrival_window: " + err.Error()}}
	}

	w := &Watchdog{
		cfg:      cfg,
		searcher: searcher,
		offers:   offers,
		notifier: notifier,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run performs one search/match/resolve/notify pass. It always ends in DONE.
func (w *Watchdog) Run(ctx context.Context) (res Result) {
	res = Result{RunID: uuid.NewString()}
	log := w.logger.WithFields(logrus.Fields{
		"run_id": res.RunID,
		"date":   w.cfg.Trip.Date,
		"route":  w.cfg.Trip.Route(),
	})
	defer res.enter(StateDone)

	res.enter(StateStart)
	log.WithField("window", w.window.String()).Info("checking trip")

	res.enter(StateSearching)
	journeys, err := w.searcher.Search(ctx, w.searchRequest())
	if err != nil {
		var drift *booking.SchemaDriftError
		if !errors.As(err, &drift) {
			log.WithField("error", err).Error("search failed")
			res.Err = err
			return res
		}
		log.WithField("error", err).Warn("search response not recognised, treating as no results")
		journeys = nil
	}
	res.Journeys = len(journeys)

	if len(journeys) == 0 {
		res.enter(StateNoResults)
		log.Info("no trains found yet, schedule likely not released")
		w.heartbeat(ctx, log, &res, "Schedule not released yet.")
		return res
	}

	res.enter(StateMatching)
	matches := w.window.Match(journeys)
	res.Matches = len(matches)
	log.WithFields(logrus.Fields{
		"scanned": len(journeys),
		"matched": len(matches),
	}).Info("scanned trains")

	if len(matches) == 0 {
		res.enter(StateNoMatch)
		w.heartbeat(ctx, log, &res, "Target train not in list yet.")
		return res
	}

	res.enter(StateResolving)
	var blocked []string
	for _, j := range matches {
		if w.resolve(ctx, log, &res, j) {
			res.Alerts++
		}
		blocked = appendUnique(blocked, j.UnavailableReasons...)
	}

	if res.Alerts > 0 {
		res.enter(StateAlerted)
		return res
	}

	res.enter(StateUnavailable)
	status := "Train found but not bookable yet."
	if len(blocked) > 0 {
		status = "Train found but blocked: " + joinCodes(blocked)
	}
	w.heartbeat(ctx, log, &res, status)
	return res
}

// resolve checks offers for one matched journey and alerts when bookable.
func (w *Watchdog) resolve(ctx context.Context, log *logrus.Entry, res *Result, j booking.Journey) bool {
	arrival := "unknown"
	if at, ok := match.ArrivalOf(j); ok {
		arrival = match.ClockOf(at).String()
	}

	var departure string
	if at, ok := match.DepartureOf(j); ok {
		departure = match.ClockOf(at).String()
	}

	jlog := log.WithFields(logrus.Fields{
		"journey":   j.ID,
		"departure": departure,
		"arrival":   arrival,
	})
	if len(j.UnavailableReasons) > 0 {
		jlog.WithField("reasons", j.UnavailableReasons).Warn("target train reports unavailability reasons")
	} else {
		jlog.Info("target train found")
	}

	offer, err := w.offers.Offers(ctx, j.ID)
	if err != nil {
		jlog.WithField("error", err).Warn("failed to resolve offers")
		res.Failures = append(res.Failures, err)
		return false
	}

	if !offer.Available {
		jlog.Info("train found, but tickets are not bookable yet")
		return false
	}

	jlog.WithField("price", offer.PriceText()).Warn("tickets are bookable")
	w.notifier.Send(ctx, alertMessage(alertEvent{
		trip:      w.cfg.Trip,
		journey:   j,
		departure: departure,
		arrival:   arrival,
		offer:     offer,
		link:      w.cfg.Booking.BookingURL,
	}))
	return true
}

func (w *Watchdog) heartbeat(ctx context.Context, log *logrus.Entry, res *Result, status string) {
	today := w.now().Weekday()
	if !w.cfg.IsHeartbeatDay(today) {
		return
	}

	log.WithFields(logrus.Fields{
		"weekday": today.String(),
		"status":  status,
	}).Info("sending heartbeat")
	w.notifier.Send(ctx, heartbeatMessage(w.cfg.Trip, status))
	res.Heartbeat = true
}

// TestNotification sends a connectivity check through the configured channel.
func (w *Watchdog) TestNotification(ctx context.Context) {
	w.notifier.Send(ctx, notify.Message{
		Title: "Test Message",
		Body:  "The watchdog is connected! Watching " + w.cfg.Trip.Route() + " on " + w.cfg.Trip.Date + ".",
	})
}

func (w *Watchdog) searchRequest() booking.SearchRequest {
	return booking.SearchRequest{
		Origin:      w.cfg.Trip.Origin,
		Destination: w.cfg.Trip.Destination,
		Date:        w.cfg.Trip.Date,
		Passengers:  w.cfg.Trip.Passengers,
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, d := range dst {
			if d == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}
