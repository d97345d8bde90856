// Package amadeus provides a client for the Amadeus Self-Service hotel
// search API. Authentication uses the OAuth2 client-credentials flow with
// the access token cached until shortly before expiry.
package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Amadeus operations used by the estimator.
type Client interface {
	// HotelOffers returns priced hotel offers for a city and stay window.
	HotelOffers(ctx context.Context, req HotelOffersRequest) (*HotelOffersResponse, error)
}

// HotelOffersRequest describes a hotel availability query.
type HotelOffersRequest struct {
	CityCode     string // IATA city code
	CheckIn      time.Time
	CheckOut     time.Time
	Adults       int
	Currency     string
	BestRateOnly bool
}

// HotelOffersResponse is the parsed hotel offers response.
type HotelOffersResponse struct {
	Data []HotelOffer `json:"data"`
}

// HotelOffer pairs a hotel with its available offers.
type HotelOffer struct {
	Hotel  Hotel   `json:"hotel"`
	Offers []Offer `json:"offers"`
}

// Hotel identifies a property.
type Hotel struct {
	HotelID string `json:"hotelId"`
	Name    string `json:"name"`
}

// Offer is a single priced stay.
type Offer struct {
	ID       string `json:"id"`
	CheckIn  string `json:"checkInDate"`
	CheckOut string `json:"checkOutDate"`
	Price    Price  `json:"price"`
}

// Price holds the offer total. Amadeus returns amounts as strings.
type Price struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

// TotalFloat parses the string total into a float. Returns an error when the
// amount is missing or malformed.
func (p Price) TotalFloat() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.Total), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "amadeus: parse price total %q", p.Total)
	}
	return v, nil
}

// Option configures the Amadeus client.
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
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new Amadeus Self-Service client.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      "https://test.api.amadeus.com",
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

// tokenSkew renews the token this long before its reported expiry.
const tokenSkew = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid access token, requesting a fresh one when the cached
// token is absent or near expiry.
func (c *httpClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "amadeus: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "amadeus: token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "amadeus: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("amadeus: token status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "amadeus: unmarshal token response")
	}
	if tok.AccessToken == "" {
		return "", eris.New("amadeus: empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSkew)
	return c.accessToken, nil
}

func (c *httpClient) HotelOffers(ctx context.Context, req HotelOffersRequest) (*HotelOffersResponse, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("cityCode", req.CityCode)
	q.Set("checkInDate", req.CheckIn.Format("2006-01-02"))
	q.Set("checkOutDate", req.CheckOut.Format("2006-01-02"))
	adults := req.Adults
	if adults <= 0 {
		adults = 2
	}
	q.Set("adults", strconv.Itoa(adults))
	if req.Currency != "" {
		q.Set("currency", req.Currency)
	}
	if req.BestRateOnly {
		q.Set("bestRateOnly", "true")
	}

	reqURL := fmt.Sprintf("%s/v2/shopping/hotel-offers?%s", c.baseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "amadeus: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+tok)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "amadeus: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "amadeus: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("amadeus: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result HotelOffersResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "amadeus: unmarshal response")
	}

	return &result, nil
}
