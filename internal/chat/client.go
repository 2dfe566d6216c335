// Package chat forwards operator questions to the RAN assistant service.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrEmptyQuery   = errors.New("chat: empty query")
	ErrUpstream     = errors.New("chat: upstream error")
	ErrHTMLResponse = errors.New("chat: received HTML instead of an API response")
)

const maxResponseBytes = 1 << 20

// Answer is one reply from the assistant.
type Answer struct {
	Text string
	// Fallback is set when the reply came from the plain-text retry.
	Fallback bool
}

// Client posts queries to the assistant endpoint.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

// Ask sends query as JSON. If that fails for any reason the query is sent
// once more as text/plain; when both fail the first error is returned.
func (c *Client) Ask(ctx context.Context, query string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, ErrEmptyQuery
	}
	if c.url == "" {
		return Answer{}, fmt.Errorf("%w: chat url not configured", ErrUpstream)
	}

	text, err := c.askJSON(ctx, query)
	if err == nil {
		return Answer{Text: text}, nil
	}
	if ctx.Err() != nil {
		return Answer{}, err
	}

	if text, ferr := c.askPlain(ctx, query); ferr == nil {
		return Answer{Text: text, Fallback: true}, nil
	}
	return Answer{}, err
}

func (c *Client) askJSON(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, "application/json", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return "", err
	}

	text := string(raw)
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		text = extractAnswer(raw)
	}
	if isHTML(text) {
		return "", ErrHTMLResponse
	}
	return text, nil
}

func (c *Client) askPlain(ctx context.Context, query string) (string, error) {
	resp, err := c.post(ctx, "text/plain", []byte(query))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return "", err
	}
	if isHTML(string(raw)) {
		return "", ErrHTMLResponse
	}
	return string(raw), nil
}

func (c *Client) post(ctx context.Context, contentType string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	return raw, nil
}

// extractAnswer prefers the "response" field, then "answer", else returns the
// JSON document itself.
func extractAnswer(raw []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw)
	}
	for _, key := range []string{"response", "answer"} {
		if s, ok := doc[key].(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(raw))
}

func isHTML(s string) bool {
	return strings.Contains(s, "<!DOCTYPE html>")
}
