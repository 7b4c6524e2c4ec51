// Package upstream is the single cookie-forwarding client used by every
// proxy route. It copies inbound cookies and security-sensitive headers
// onto the upstream request and relays upstream Set-Cookie headers back
// verbatim and in order, so confidentiality attributes survive backend
// swaps.
package upstream

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spearfish/auth-gateway/autherr"
)

// forwardedHeaders are the request headers relayed upstream alongside
// cookies. Authorization is deliberately absent: bearer tokens never
// leave the gateway through the proxy routes.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Request-ID",
	"User-Agent",
}

// Response is the part of an upstream reply the proxy routes care about.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	// SetCookies holds the raw Set-Cookie header values in the exact
	// order the upstream sent them.
	SetCookies []string
}

// Client forwards requests to one upstream identity server.
type Client struct {
	baseURL string
	http    *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient overrides the transport (primarily for testing).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.http = httpClient }
}

func NewClient(baseURL string, timeout time.Duration, options ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Forward sends method+path upstream, carrying the inbound request's
// cookies and forwarded headers. body may be nil.
func (c *Client) Forward(ctx context.Context, method, path string, body []byte, contentType string, inbound *http.Request) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Forward] NewRequest")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if inbound != nil {
		copyForwardingHeaders(req, inbound)
		for _, cookie := range inbound.Cookies() {
			req.AddCookie(cookie)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Err(err).Str("method", method).Str("path", path).Msg("upstream request failed")
		return nil, autherr.Wrap(autherr.CodeNetworkError, err, "upstream unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, autherr.Wrap(autherr.CodeNetworkError, err, "reading upstream response")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Header:     resp.Header,
		SetCookies: resp.Header.Values("Set-Cookie"),
	}, nil
}

// copyForwardingHeaders relays the security-sensitive headers and
// appends the caller to the X-Forwarded-For chain.
func copyForwardingHeaders(out *http.Request, inbound *http.Request) {
	for _, h := range forwardedHeaders {
		if v := inbound.Header.Get(h); v != "" {
			out.Header.Set(h, v)
		}
	}

	if host, _, err := net.SplitHostPort(inbound.RemoteAddr); err == nil && host != "" {
		if prior := out.Header.Get("X-Forwarded-For"); prior != "" {
			out.Header.Set("X-Forwarded-For", prior+", "+host)
		} else {
			out.Header.Set("X-Forwarded-For", host)
		}
	}
}

// RelaySetCookies copies upstream Set-Cookie headers onto the response
// writer verbatim, preserving order.
func RelaySetCookies(w http.ResponseWriter, setCookies []string) {
	for _, sc := range setCookies {
		w.Header().Add("Set-Cookie", sc)
	}
}
