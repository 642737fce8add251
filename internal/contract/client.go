// Package contract looks up the contract number that prices a flight.
package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"fuelbill/internal"
)

// successCode is the business code of a successful lookup response.
const successCode = 20000

var (
	ErrNoContract    = eris.New("no contract for route")
	ErrNotConfigured = eris.New("contract lookup url not configured")
)

// Request is the lookup body. StdStr is the flight date, AirCode the
// airline code.
type Request struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	StdStr      string `json:"stdStr"`
	AirCode     string `json:"airCode"`
}

// RequestFor builds the request of an enrichable row.
func RequestFor(row internal.CanonicalRow) Request {
	return Request{
		Origin:      deref(row.Origin),
		Destination: deref(row.Destination),
		StdStr:      deref(row.FlightDate),
		AirCode:     deref(row.AirlineCode),
	}
}

type lookupResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    *lookupContract `json:"data"`
}

type lookupContract struct {
	ContractNo string `json:"contractNo"`
}

type Client struct {
	url        string
	httpClient *http.Client
	limiter    *RateLimiter
}

func NewClient(url string, timeout time.Duration, requestsPerSecond float64) *Client {
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    NewRateLimiter(requestsPerSecond),
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.url != ""
}

// Lookup posts one request. It is called once per row and never retried.
// A response that is not a success yields ErrNoContract.
func (c *Client) Lookup(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if err := c.limiter.WaitTurn(ctx); err != nil {
		return "", eris.Wrap(err, "wait for lookup slot")
	}

	blob, err := json.Marshal(req)
	if err != nil {
		return "", eris.Wrap(err, "encode lookup request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(blob))
	if err != nil {
		return "", eris.Wrap(err, "build lookup request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "contract lookup")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "read lookup response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Wrapf(ErrNoContract, "status %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrap(err, "decode lookup response")
	}
	if out.Code != successCode || out.Data == nil || strings.TrimSpace(out.Data.ContractNo) == "" {
		return "", eris.Wrapf(ErrNoContract, "code %d %s", out.Code, out.Message)
	}
	return out.Data.ContractNo, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
