// Package kiwi provides a client for the Kiwi.com Tequila flight search API.
package kiwi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Tequila flight search operations.
type Client interface {
	// Search queries return flights between two places for the given dates.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest describes a round-trip flight query.
type SearchRequest struct {
	FlyFrom    string // IATA code or Tequila location ID
	FlyTo      string
	DateFrom   time.Time
	DateTo     time.Time
	ReturnFrom time.Time
	ReturnTo   time.Time
	Adults     int
	Currency   string
	Limit      int
}

// SearchResponse is the parsed Tequila search response.
type SearchResponse struct {
	Currency string   `json:"currency"`
	Data     []Flight `json:"data"`
}

// Flight is a single priced itinerary.
type Flight struct {
	ID       string   `json:"id"`
	CityFrom string   `json:"cityFrom"`
	CityTo   string   `json:"cityTo"`
	Price    float64  `json:"price"`
	Airlines []string `json:"airlines"`
	DeepLink string   `json:"deep_link"`
}

// Option configures the Kiwi client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Tequila client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.tequila.kiwi.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tequilaDate is the date format the search endpoint expects.
const tequilaDate = "02/01/2006"

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("fly_from", req.FlyFrom)
	q.Set("fly_to", req.FlyTo)
	q.Set("date_from", req.DateFrom.Format(tequilaDate))
	q.Set("date_to", req.DateTo.Format(tequilaDate))
	if !req.ReturnFrom.IsZero() {
		q.Set("return_from", req.ReturnFrom.Format(tequilaDate))
		q.Set("return_to", req.ReturnTo.Format(tequilaDate))
	}
	adults := req.Adults
	if adults <= 0 {
		adults = 1
	}
	q.Set("adults", strconv.Itoa(adults))
	if req.Currency != "" {
		q.Set("curr", req.Currency)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", "price")

	reqURL := fmt.Sprintf("%s/v2/search?%s", c.baseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "kiwi: create request")
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "kiwi: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "kiwi: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("kiwi: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "kiwi: unmarshal response")
	}

	return &result, nil
}
