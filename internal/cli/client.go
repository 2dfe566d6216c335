package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ranpulse/core-go/internal/dashboard"
	"ranpulse/core-go/internal/health"
	"ranpulse/core-go/internal/notify"
)

// feedEntry is a live feed event as the API renders it. Only the shared
// fields are decoded.
type feedEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	CellID    string    `json:"cell_id"`
	Message   string    `json:"message"`
}

// snapshotView is the client-side decoding of GET /api/v1/snapshot.
type snapshotView struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Sources     map[string]string     `json:"sources"`
	Towers      []dashboard.TowerView `json:"towers"`
	Feed        []feedEntry           `json:"feed"`
	Cells       []string              `json:"cells"`
	Summary     health.Summary        `json:"summary"`
}

// apiClient talks to a running ranpulse server.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(body, &env)
		return &apiError{Status: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Message}
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (c *apiClient) snapshot(ctx context.Context) (snapshotView, error) {
	var snap snapshotView
	err := c.do(ctx, http.MethodGet, "/api/v1/snapshot", &snap)
	return snap, err
}

func (c *apiClient) notifications(ctx context.Context) ([]notify.Notification, error) {
	var out []notify.Notification
	err := c.do(ctx, http.MethodGet, "/api/v1/notifications", &out)
	return out, err
}

func (c *apiClient) reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/settings/reload", nil)
}
