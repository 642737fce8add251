package contract

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func fakeClient(fn roundTripFunc) *Client {
	c := NewClient("https://contracts.example.test/api/contract/match", time.Second, 0)
	c.httpClient = &http.Client{Transport: fn}
	return c
}

func TestLookupSuccess(t *testing.T) {
	var got Request
	c := fakeClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		return respond(http.StatusOK, `{"code":20000,"message":"ok","data":{"contractNo":"HT-2024-001"}}`), nil
	})

	req := Request{Origin: "CGO", Destination: "BUD", StdStr: "2024-03-05", AirCode: "YG"}
	no, err := c.Lookup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "HT-2024-001", no)
	assert.Equal(t, req, got)
}

func TestLookupWireFormat(t *testing.T) {
	blob, err := json.Marshal(Request{Origin: "CGO", Destination: "BUD", StdStr: "2024-03-05", AirCode: "YG"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"origin":"CGO","destination":"BUD","stdStr":"2024-03-05","airCode":"YG"}`, string(blob))
}

func TestLookupNoContract(t *testing.T) {
	cases := map[string]*http.Response{
		"business code": respond(http.StatusOK, `{"code":40400,"message":"not found","data":null}`),
		"null data":     respond(http.StatusOK, `{"code":20000,"data":null}`),
		"empty number":  respond(http.StatusOK, `{"code":20000,"data":{"contractNo":" "}}`),
		"http status":   respond(http.StatusBadGateway, `bad gateway`),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			c := fakeClient(func(*http.Request) (*http.Response, error) { return resp, nil })
			_, err := c.Lookup(context.Background(), Request{})
			assert.ErrorIs(t, err, ErrNoContract)
		})
	}
}

func TestLookupTransportAndDecodeErrors(t *testing.T) {
	c := fakeClient(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})
	_, err := c.Lookup(context.Background(), Request{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoContract)

	c = fakeClient(func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `<html>`), nil
	})
	_, err = c.Lookup(context.Background(), Request{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoContract)
}

func TestLookupNotConfigured(t *testing.T) {
	c := NewClient("  ", time.Second, 0)
	assert.False(t, c.Configured())
	_, err := c.Lookup(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	var nilClient *Client
	assert.False(t, nilClient.Configured())
}

func TestRateLimiterRespectsContext(t *testing.T) {
	assert.NoError(t, NewRateLimiter(0).WaitTurn(context.Background()))
	var nilLimiter *RateLimiter
	assert.NoError(t, nilLimiter.WaitTurn(context.Background()))

	limiter := NewRateLimiter(0.001)
	require.NoError(t, limiter.WaitTurn(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.WaitTurn(ctx))
}
