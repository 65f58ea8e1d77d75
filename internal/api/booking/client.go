package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/danpilch/trainwatch/internal/config"
)

const maxBodyBytes = 8 << 20

type Options struct {
	Endpoints  Endpoints
	APIKey     string
	ClientName string
	UserAgent  string

	Timeout         time.Duration // per HTTP call
	ResultsDelay    time.Duration // pause between search initiation and results fetch
	RequestInterval time.Duration // minimum spacing between backend calls

	JourneyKeys []string // candidate journey list paths, in order
	FareClasses []string // offer partitions, in order
	Currency    string   // used when a price carries no currency
}

// Client talks to the booking backend.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	opts       Options
	logger     *logrus.Logger
}

// NewClient creates a new booking backend client.
func NewClient(opts Options, logger *logrus.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		opts:       opts,
		logger:     logger,
	}
}

// NewClientFromConfig builds a client whose endpoints and tolerances come from
// the booking section of the config.
func NewClientFromConfig(cfg config.BookingConfig, logger *logrus.Logger) *Client {
	return NewClient(Options{
		Endpoints: PathEndpoints{
			BaseURL:     cfg.BaseURL,
			SearchPath:  cfg.SearchPath,
			ResultsPath: cfg.ResultsPath,
			OffersPath:  cfg.OffersPath,
			PlacesPath:  cfg.PlacesPath,
		},
		APIKey:          cfg.APIKey,
		ClientName:      cfg.ClientName,
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.Timeout,
		ResultsDelay:    cfg.ResultsDelay,
		RequestInterval: cfg.RequestInterval,
		JourneyKeys:     cfg.JourneyKeys,
		FareClasses:     cfg.FareClasses,
		Currency:        cfg.Currency,
	}, logger)
}

// Search runs the departure search. The backend either answers with the
// journey list right away or with a session id whose results are fetched after
// a short pause. Only one results fetch is made.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Journey, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(newSearchPayload(req))
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	root, err := c.doJSON(ctx, "search", http.MethodPost, c.opts.Endpoints.Search(), payload)
	if err != nil {
		return nil, err
	}

	if journeys, key, ok := c.extractJourneys(root); ok {
		c.logger.WithFields(logrus.Fields{
			"key":      key,
			"journeys": len(journeys),
		}).Debug("search answered synchronously")
		return journeys, nil
	}

	obj, _ := root.(map[string]any)
	sessionID, ok := firstString(obj, sessionIDKeys)
	if !ok {
		return nil, &SchemaDriftError{Op: "search", Detail: "response has neither a journey list nor a session id"}
	}

	c.logger.WithFields(logrus.Fields{
		"session": sessionID,
		"delay":   c.opts.ResultsDelay,
	}).Debug("search session started, waiting for results")

	if err := sleep(ctx, c.opts.ResultsDelay); err != nil {
		return nil, &NetworkError{Op: "results", Err: err}
	}

	root, err = c.doJSON(ctx, "results", http.MethodGet, c.opts.Endpoints.Results(sessionID), nil)
	if err != nil {
		return nil, err
	}

	journeys, key, ok := c.extractJourneys(root)
	if !ok {
		return nil, &SchemaDriftError{Op: "results", Detail: "no known journey list key in response"}
	}

	c.logger.WithFields(logrus.Fields{
		"session":  sessionID,
		"key":      key,
		"journeys": len(journeys),
	}).Debug("search results fetched")

	return journeys, nil
}

// extractJourneys tries each configured journey path in order.
func (c *Client) extractJourneys(root any) ([]Journey, string, bool) {
	for _, key := range c.opts.JourneyKeys {
		raw, ok := lookupList(root, key)
		if !ok {
			continue
		}

		journeys := make([]Journey, 0, len(raw))
		for i, r := range raw {
			j, ok := decodeJourney(r)
			if !ok {
				c.logger.WithFields(logrus.Fields{
					"key":   key,
					"index": i,
				}).Debug("skipping journey entry that is not an object")
				continue
			}
			journeys = append(journeys, j)
		}
		return journeys, key, true
	}
	return nil, "", false
}

// doJSON performs one backend call and decodes the body into generic JSON.
func (c *Client) doJSON(ctx context.Context, op, method, url string, body []byte) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("ocp-apim-subscription-key", c.opts.APIKey)
	if c.opts.ClientName != "" {
		req.Header.Set("x-client-name", c.opts.ClientName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &SchemaDriftError{Op: op, Detail: "decoding response", Err: err}
	}

	return root, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
