package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/network"
)

const maxDocumentBytes = 32 << 20

// Fetcher loads JSON array documents from http(s) URLs or local files.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// IsRemote reports whether location is an http(s) URL rather than a path.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Describe renders location for source names: the URL host for remote
// documents, the base name for files.
func Describe(location string) string {
	if IsRemote(location) {
		u, _ := url.Parse(location)
		return "json:" + u.Host
	}
	return "file:" + filepath.Base(location)
}

// FetchArray loads location and decodes it into dst, which must point to a
// slice. Remote responses must be 2xx with a JSON content type (or none); any
// document must be a top-level JSON array.
func (f *Fetcher) FetchArray(ctx context.Context, location string, dst any) error {
	var (
		raw []byte
		err error
	)
	if IsRemote(location) {
		raw, err = f.get(ctx, location)
	} else {
		raw, err = readFile(location)
	}
	if err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%w: %s is not a JSON array", ErrSchema, location)
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrSchema, location, err)
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrTransport, location, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "json") {
		return nil, fmt.Errorf("%w: GET %s: content type %q is not JSON", ErrSchema, location, ct)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, location, err)
	}
	return raw, nil
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no file configured", ErrTransport)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return raw, nil
}

// JSONTowers serves towers from a JSON document. Records without an id or
// coordinates are skipped.
func JSONTowers(f *Fetcher, location string, log zerolog.Logger) Source[[]network.Tower] {
	return Func(Describe(location), func(ctx context.Context) ([]network.Tower, error) {
		var records []network.TowerRecord
		if err := f.FetchArray(ctx, location, &records); err != nil {
			return nil, err
		}
		towers := make([]network.Tower, 0, len(records))
		skipped := 0
		for _, r := range records {
			t, ok := r.ToTower()
			if !ok {
				skipped++
				continue
			}
			towers = append(towers, t)
		}
		if skipped > 0 {
			log.Warn().Int("skipped", skipped).Str("location", location).Msg("tower records without id or coordinates skipped")
		}
		return towers, nil
	})
}

// JSONAnomalies serves anomalies from a JSON document.
func JSONAnomalies(f *Fetcher, location string, log zerolog.Logger) Source[[]anomaly.Record] {
	return Func(Describe(location), func(ctx context.Context) ([]anomaly.Record, error) {
		var records []network.AnomalyRecord
		if err := f.FetchArray(ctx, location, &records); err != nil {
			return nil, err
		}
		return anomaly.Normalize(log, records, time.Now().UTC()), nil
	})
}
