// Package api implements the client side of the remote service contract:
// authenticated HTTP requests with gzip-compressed bodies, classified into
// permanent and transient failures.
package api

import (
	"bytes"
	"compress/gzip"
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

	"github.com/dmitrijs2005/addonsync/internal/config"
	"github.com/dmitrijs2005/addonsync/internal/cryptox"
	"github.com/dmitrijs2005/addonsync/internal/logging"
)

const requestTimeout = 30 * time.Second

// Shared secrets the server validates against. The reference deployment
// loads these from a private config at build time.
const (
	tokenSalt    = "8b1f42a9c3d75e60"
	passwordSalt = "f2ac51b98d3e0c47"
)

// PasswordSalt is appended to passwords before hashing; exported for the
// login command.
func PasswordSalt() string { return passwordSalt }

// Client talks to the remote service. Safe for use from a single worker
// goroutine; the session mutex only guards against readers on the UI side.
type Client struct {
	endpoint string
	http     *http.Client
	log      logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	session Session
}

func NewClient(endpoint string, log logging.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
		now:      time.Now,
	}
}

// Username returns the display name from the current session.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Name
}

// IsPremium reports the entitlement flag from the current session.
func (c *Client) IsPremium() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.IsPremium
}

// Logout drops the current session.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = Session{}
}

func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Token
}

// response is the decoded wire payload: raw bytes for zip/octet-stream
// content, JSON (already success-checked) otherwise.
type response struct {
	raw     []byte
	jsonRaw json.RawMessage
}

// request performs one call. Path elements are URL-escaped and joined.
// Body handling mirrors the server's expectations: strings go as gzipped
// text/plain, []byte as uncompressed octet-stream, everything else as
// gzipped JSON.
func (c *Client) request(ctx context.Context, elems []string, body any) (*response, error) {
	req, err := c.buildRequest(ctx, elems, body)
	if err != nil {
		return nil, err
	}

	c.log.Debug(ctx, "making request", "url", req.URL.Redacted())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error(ctx, "request failed", "err", err)
		return nil, &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error(ctx, "unexpected http status", "status", resp.StatusCode)
		return nil, &TransientError{Message: fmt.Sprintf("http status %d", resp.StatusCode)}
	}

	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &TransientError{Cause: err}
		}
		defer gz.Close()
		reader = gz
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}

	contentType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	switch strings.TrimSpace(contentType) {
	case "application/zip", "application/octet-stream":
		return &response{raw: raw}, nil
	case "application/json":
		return decodeJSONResponse(raw)
	default:
		c.log.Error(ctx, "unexpected content type", "contentType", contentType)
		return nil, &TransientError{Message: "unexpected content type " + contentType}
	}
}

// decodeJSONResponse enforces the success-flag protocol: a decodable
// payload with success=true passes through, an explicit error message is
// permanent, anything else is transient.
func decodeJSONResponse(raw []byte) (*response, error) {
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &envelope) != nil {
		return nil, &TransientError{Message: "invalid response payload"}
	}
	if !envelope.Success {
		if envelope.Error != "" {
			return nil, &PermanentError{Message: envelope.Error}
		}
		return nil, &TransientError{Message: "response not flagged successful"}
	}
	return &response{jsonRaw: raw}, nil
}

func (c *Client) buildRequest(ctx context.Context, elems []string, body any) (*http.Request, error) {
	escaped := make([]string, len(elems))
	for i, e := range elems {
		escaped[i] = url.PathEscape(e)
	}

	now := c.now().Unix()
	query := url.Values{
		"session": {c.sessionToken()},
		"version": {strconv.Itoa(config.VersionCode)},
		"time":    {strconv.FormatInt(now, 10)},
		"token":   {cryptox.RequestToken(config.VersionCode, now, tokenSalt)},
	}
	u := c.endpoint + "/" + strings.Join(escaped, "/") + "?" + query.Encode()

	var (
		payload     io.Reader
		contentType string
		gzipped     bool
	)
	switch data := body.(type) {
	case nil:
	case []byte:
		payload = bytes.NewReader(data)
		contentType = "application/octet-stream"
	case string:
		buf, err := gzipBytes([]byte(data))
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(buf)
		contentType = "text/plain"
		gzipped = true
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		buf, err := gzipBytes(encoded)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(buf)
		contentType = "application/json"
		gzipped = true
	}

	method := http.MethodGet
	if payload != nil {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if gzipped {
		req.Header.Set("Content-Encoding", "gzip")
	}
	return req, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// requestJSON performs a request and unmarshals the JSON payload into out.
func (c *Client) requestJSON(ctx context.Context, elems []string, body, out any) error {
	resp, err := c.request(ctx, elems, body)
	if err != nil {
		return err
	}
	if resp.jsonRaw == nil {
		return &TransientError{Message: "expected a json response"}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.jsonRaw, out); err != nil {
		return &TransientError{Message: "undecodable response", Cause: err}
	}
	return nil
}

// requestBytes performs a request expecting a raw byte payload.
func (c *Client) requestBytes(ctx context.Context, elems []string) ([]byte, error) {
	resp, err := c.request(ctx, elems, nil)
	if err != nil {
		return nil, err
	}
	if resp.raw == nil {
		return nil, &TransientError{Message: "expected a binary response"}
	}
	return resp.raw, nil
}
