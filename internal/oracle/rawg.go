package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	opLookupImage  = "lookup_image"
	opValidateName = "validate_name"

	resultHit     = "hit"
	resultMiss    = "miss"
	resultFailure = "failure"
)

var (
	ErrNoMatch        = errors.New("no matching game")
	ErrUnexpectedCode = errors.New("unexpected status code")
)

type recorder interface {
	ObserveOracle(op, result string, elapsed time.Duration)
}

type game struct {
	Name            string `json:"name"`
	BackgroundImage string `json:"background_image"`
}

type searchResponse struct {
	Count   int    `json:"count"`
	Results []game `json:"results"`
}

// Client queries the RAWG games API. Every failure degrades to an empty
// result; callers never see an error.
type Client struct {
	logger   *slog.Logger
	recorder recorder

	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration

	flight singleflight.Group
}

func New(logger *slog.Logger, recorder recorder, baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		logger:     logger.With("component", "oracle"),
		recorder:   recorder,
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		timeout:    timeout,
	}
}

// LookupImage returns the box art url of the best match, or "" when there is none.
func (that *Client) LookupImage(ctx context.Context, name string) string {
	match, ok := that.lookup(ctx, opLookupImage, name)
	if !ok {
		return ""
	}

	return match.BackgroundImage
}

// ValidateName returns the canonical title of the best match.
func (that *Client) ValidateName(ctx context.Context, name string) (string, bool) {
	match, ok := that.lookup(ctx, opValidateName, name)
	if !ok || match.Name == "" {
		return "", false
	}

	return match.Name, true
}

func (that *Client) lookup(ctx context.Context, op, name string) (*game, bool) {
	log := that.logger.With("method", op, "name", name)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}

	started := time.Now()

	// identical concurrent searches share one request
	value, err, _ := that.flight.Do(strings.ToLower(name), func() (any, error) {
		return that.search(context.WithoutCancel(ctx), name)
	})

	switch {
	case errors.Is(err, ErrNoMatch):
		that.recorder.ObserveOracle(op, resultMiss, time.Since(started))
		return nil, false
	case err != nil:
		that.recorder.ObserveOracle(op, resultFailure, time.Since(started))
		log.Warn("game metadata lookup failed", "error", err)
		return nil, false
	}

	that.recorder.ObserveOracle(op, resultHit, time.Since(started))

	match, ok := value.(*game)

	return match, ok
}

func (that *Client) search(ctx context.Context, name string) (*game, error) {
	ctx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("key", that.apiKey)
	query.Set("search", name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, that.baseURL+"/games?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := that.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search games: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedCode, resp.StatusCode)
	}

	var body searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	if body.Count == 0 || len(body.Results) == 0 {
		return nil, ErrNoMatch
	}

	return &body.Results[0], nil
}
