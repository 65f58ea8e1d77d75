package monitor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/trainwatch/internal/api/booking"
	"github.com/danpilch/trainwatch/internal/config"
	"github.com/danpilch/trainwatch/internal/notify"
)

const apiPrefix = "/public/sales/booking/v3"

var (
	monday  = time.Date(2026, time.October, 19, 6, 0, 0, 0, time.UTC)
	tuesday = time.Date(2026, time.October, 20, 6, 0, 0, 0, time.UTC)
)

type recordingSender struct {
	messages []notify.Message
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) {
	r.messages = append(r.messages, msg)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	yaml := `
trip:
  date: "2026-08-20"
  origin: "740000556"
  destination: "740000254"
  origin_name: Arlanda C
  destination_name: Gällivare C
  passengers: [ADULT, ADULT]
arrival_window:
  after: "07:30"
  before: "09:00"
heartbeat_days: [monday]
booking:
  base_url: ` + baseURL + `
  results_delay: 1ms
  request_interval: 1ms
  booking_url: https://www.sj.se
`
	cfg, err := config.Parse([]byte(yaml), func(k string) string {
		if k == config.EnvAPIKey {
			return "test-key"
		}
		return ""
	})
	require.NoError(t, err)
	return cfg
}

// backend serves canned bodies per path; a missing path answers 404.
func backend(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func body(s string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, s)
	}
}

func status(code int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) }
}

func newTestWatchdog(t *testing.T, srv *httptest.Server, now time.Time) (*Watchdog, *recordingSender) {
	t.Helper()
	cfg := testConfig(t, srv.URL+apiPrefix)
	logger := quietLogger()
	client := booking.NewClientFromConfig(cfg.Booking, logger)
	sender := &recordingSender{}

	w, err := NewWatchdog(cfg, client, client, sender, logger, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return w, sender
}

func TestRun_AlertWhenBookable(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"travels":[{"departures":[
			{"departureId":"n94","arrivalDateTime":"2026-08-21T08:24:00"},
			{"departureId":"x10","arrivalDateTime":"2026-08-21T14:02:00"}
		]}]}`),
		"/public/sales/booking/v3/departures/n94/offers": body(`{"seatOffers":{"available":true,"priceFrom":{"price":1200}}}`),
	})
	w, sender := newTestWatchdog(t, srv, tuesday)

	res := w.Run(context.Background())

	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, StateAlerted, res.Outcome)
	assert.Equal(t, []State{StateStart, StateSearching, StateMatching, StateResolving, StateAlerted, StateDone}, res.Path)
	assert.Equal(t, 2, res.Journeys)
	assert.Equal(t, 1, res.Matches)
	assert.Equal(t, 1, res.Alerts)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Contains(t, msg.Body, "08:24")
	assert.Contains(t, msg.Body, "1200")
	assert.Contains(t, msg.Body, "Arlanda C -> Gällivare C")
	assert.Contains(t, msg.Body, "2026-08-20")
	assert.Equal(t, "https://www.sj.se", msg.URL)
	assert.Equal(t, notify.PriorityHigh, msg.Priority)
}

func TestRun_UnavailableWhenNotBookable(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"travels":[{"departures":[
			{"departureId":"n94","arrivalDateTime":"2026-08-21T08:24:00"}
		]}]}`),
		"/public/sales/booking/v3/departures/n94/offers": body(`{"seatOffers":{"available":false},"bedOffers":{"available":false}}`),
	})
	w, sender := newTestWatchdog(t, srv, tuesday)

	res := w.Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, StateUnavailable, res.Outcome)
	assert.Equal(t, StateDone, res.Path[len(res.Path)-1])
	assert.Zero(t, res.Alerts)
	assert.False(t, res.Heartbeat)
	assert.Empty(t, sender.messages)
}

func TestRun_HeartbeatWhenNoResults(t *testing.T) {
	require.Equal(t, time.Monday, monday.Weekday())

	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"travels":[]}`),
	})
	w, sender := newTestWatchdog(t, srv, monday)

	res := w.Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, StateNoResults, res.Outcome)
	assert.True(t, res.Heartbeat)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, "Schedule not released yet.")
	assert.Contains(t, sender.messages[0].Body, "2026-08-20")
}

func TestRun_SearchUpstreamError(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": status(http.StatusInternalServerError),
	})
	w, sender := newTestWatchdog(t, srv, monday)

	var res Result
	require.NotPanics(t, func() { res = w.Run(context.Background()) })

	assert.False(t, res.OK())
	var upstream *booking.UpstreamError
	require.ErrorAs(t, res.Err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.Equal(t, []State{StateStart, StateSearching, StateDone}, res.Path)
	assert.Empty(t, sender.messages)
}

func TestRun_AsynchronousSearch(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search":                body(`{"departureSearchId":"s-1"}`),
		"/public/sales/booking/v3/departures/search/s-1": body(`{"travels":[{"departures":[{"departureId":"n94","arrivalDateTime":"2026-08-21T08:24:00"}]}]}`),
		"/public/sales/booking/v3/departures/n94/offers": body(`{"available":true,"priceFrom":{"price":1200}}`),
	})
	w, sender := newTestWatchdog(t, srv, tuesday)

	res := w.Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, StateAlerted, res.Outcome)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, "1200 SEK")
}

func TestRun_EveryMatchResolvedIndependently(t *testing.T) {
	var offersCalls int32
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"departures":[
			{"departureId":"broken","arrivalDateTime":"2026-08-21T07:55:00"},
			{"departureId":"n94","arrivalDateTime":"2026-08-21T08:24:00"},
			{"departureId":"n96","arrivalDateTime":"2026-08-21T08:50:00"}
		]}`),
		"/public/sales/booking/v3/departures/broken/offers": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&offersCalls, 1)
			w.WriteHeader(http.StatusBadGateway)
		},
		"/public/sales/booking/v3/departures/n94/offers": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&offersCalls, 1)
			body(`{"bedOffers":{"available":true,"priceFrom":{"price":2100}}}`)(w, r)
		},
		"/public/sales/booking/v3/departures/n96/offers": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&offersCalls, 1)
			body(`{"seatOffers":{"available":true}}`)(w, r)
		},
	})
	w, sender := newTestWatchdog(t, srv, tuesday)

	res := w.Run(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&offersCalls))
	assert.Equal(t, StateAlerted, res.Outcome)
	assert.Equal(t, 2, res.Alerts)
	require.Len(t, res.Failures, 1)

	require.Len(t, sender.messages, 2)
	assert.Contains(t, sender.messages[0].Body, "08:24")
	assert.Contains(t, sender.messages[0].Body, "2100 SEK")
	assert.Contains(t, sender.messages[1].Body, "08:50")
	assert.Contains(t, sender.messages[1].Body, "Price: Unknown")
}

func TestRun_HeartbeatWhenNoMatch(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"travels":[{"departures":[
			{"departureId":"day","arrivalDateTime":"2026-08-21T17:10:00"}
		]}]}`),
	})
	w, sender := newTestWatchdog(t, srv, monday)

	res := w.Run(context.Background())

	assert.Equal(t, StateNoMatch, res.Outcome)
	assert.True(t, res.Heartbeat)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, "Target train not in list yet.")
}

func TestRun_NoHeartbeatOnOtherDays(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"travels":[]}`),
	})
	w, sender := newTestWatchdog(t, srv, tuesday)

	res := w.Run(context.Background())

	assert.Equal(t, StateNoResults, res.Outcome)
	assert.False(t, res.Heartbeat)
	assert.Empty(t, sender.messages)
}

func TestRun_HeartbeatListsBlockingReasons(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"travels":[{"departures":[
			{"departureId":"n94","arrivalDateTime":"2026-08-21T08:24:00",
			 "unavailableReasons":[{"code":"NOT_YET_RELEASED"},{"code":"TRACK_WORK"}]}
		]}]}`),
		"/public/sales/booking/v3/departures/n94/offers": body(`{"seatOffers":{"available":false}}`),
	})
	w, sender := newTestWatchdog(t, srv, monday)

	res := w.Run(context.Background())

	assert.Equal(t, StateUnavailable, res.Outcome)
	assert.Zero(t, res.Alerts)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, "Train found but blocked: NOT_YET_RELEASED, TRACK_WORK")
}

func TestRun_SchemaDriftTreatedAsNoResults(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`<html>maintenance</html>`),
	})
	w, sender := newTestWatchdog(t, srv, tuesday)

	res := w.Run(context.Background())

	assert.True(t, res.OK())
	assert.Equal(t, StateNoResults, res.Outcome)
	assert.Empty(t, sender.messages)
}

type stubSearcher struct {
	journeys []booking.Journey
	err      error
}

func (s stubSearcher) Search(context.Context, booking.SearchRequest) ([]booking.Journey, error) {
	return s.journeys, s.err
}

type stubResolver map[string]*booking.OfferResult

func (s stubResolver) Offers(_ context.Context, id string) (*booking.OfferResult, error) {
	if r, ok := s[id]; ok {
		return r, nil
	}
	return nil, errors.New("no offers")
}

func TestRun_NetworkErrorEndsRun(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	sender := &recordingSender{}
	netErr := &booking.NetworkError{Op: "search", Err: context.DeadlineExceeded}

	w, err := NewWatchdog(cfg, stubSearcher{err: netErr}, stubResolver{}, sender, quietLogger(),
		WithClock(func() time.Time { return monday }))
	require.NoError(t, err)

	res := w.Run(context.Background())

	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, StateSearching, res.Outcome)
	assert.False(t, res.Heartbeat)
	assert.Empty(t, sender.messages)
}

func TestRun_DuplicateItinerariesAlertTwice(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	sender := &recordingSender{}
	j := booking.Journey{ID: "n94", Arrival: "2026-08-21T08:24:00"}
	offers := stubResolver{"n94": {Available: true, LowestPrice: &booking.Price{Amount: 1200, Currency: "SEK"}}}

	w, err := NewWatchdog(cfg, stubSearcher{journeys: []booking.Journey{j, j}}, offers, sender, quietLogger())
	require.NoError(t, err)

	res := w.Run(context.Background())

	assert.Equal(t, 2, res.Alerts)
	assert.Len(t, sender.messages, 2)
}

func TestNewWatchdog_InvalidWindow(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.ArrivalWindow.After = "late"

	_, err := NewWatchdog(cfg, stubSearcher{}, stubResolver{}, &recordingSender{}, quietLogger())

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestTestNotification(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	sender := &recordingSender{}
	w, err := NewWatchdog(cfg, stubSearcher{}, stubResolver{}, sender, quietLogger())
	require.NoError(t, err)

	w.TestNotification(context.Background())

	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, "connected")
}

func TestRun_AlertCarriesDepartureTime(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"travels":[{"departures":[
			{"departureId":"n94","departureDateTime":"2026-08-20T19:14:00","arrivalDateTime":"2026-08-21T08:24:00"}
		]}]}`),
		"/public/sales/booking/v3/departures/n94/offers": body(`{"seatOffers":{"available":true,"priceFrom":{"price":1200}}}`),
	})
	w, sender := newTestWatchdog(t, srv, tuesday)

	res := w.Run(context.Background())

	require.Equal(t, StateAlerted, res.Outcome)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].Body, "Depart: 19:14\nArrive: 08:24")
}

func TestRun_AlertWithoutDepartureOmitsLine(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	sender := &recordingSender{}
	j := booking.Journey{ID: "n94", Arrival: "2026-08-21T08:24:00"}
	offers := stubResolver{"n94": {Available: true}}

	w, err := NewWatchdog(cfg, stubSearcher{journeys: []booking.Journey{j}}, offers, sender, quietLogger())
	require.NoError(t, err)

	w.Run(context.Background())

	require.Len(t, sender.messages, 1)
	assert.NotContains(t, sender.messages[0].Body, "Depart:")
	assert.Equal(t, notify.PriorityHigh, sender.messages[0].Priority)
}

func TestRun_HeartbeatIsNormalPriority(t *testing.T) {
	srv := backend(t, map[string]func(http.ResponseWriter, *http.Request){
		"/public/sales/booking/v3/search": body(`{"travels":[]}`),
	})
	w, sender := newTestWatchdog(t, srv, monday)

	w.Run(context.Background())

	require.Len(t, sender.messages, 1)
	assert.Equal(t, notify.PriorityNormal, sender.messages[0].Priority)
	assert.Equal(t, "Watchdog Report", sender.messages[0].Title)
}
