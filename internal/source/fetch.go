// Package source fetches the raw data feeds, normalizes them and keeps the
// last good batch per source in an explicit cache.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	remoteGtfs "github.com/jamespfennell/gtfs"
	"transitguide.org/internal/config"
	"transitguide.org/internal/models"
	"transitguide.org/internal/normalize"
)

// UserAgent is sent with every feed request.
var UserAgent = "transitguide/1.0"

// maxFeedBytes bounds a single feed download.
const maxFeedBytes = 256 << 20

// errUnrecognizedPayload is returned when a Socrata response is neither a JSON
// array nor an object wrapping one.
var errUnrecognizedPayload = errors.New("unrecognized payload shape")

// feedURL returns src.URL with the $limit parameter applied, unless the URL
// already carries one.
func feedURL(src models.DataSource) (string, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url for source %s: %w", src.Name, err)
	}
	if src.Limit > 0 {
		q := u.Query()
		if q.Get("$limit") == "" {
			q.Set("$limit", strconv.Itoa(src.Limit))
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}

// get issues a GET with retries and returns the body of a 200 response.
func get(ctx context.Context, client *http.Client, src models.DataSource, accept string, maxRetries int) ([]byte, error) {
	target, err := feedURL(src)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", accept)
	if src.AppToken != "" {
		req.Header.Set("X-App-Token", src.AppToken)
	}

	resp, err := config.DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to make GET request to %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status %d from %s", resp.StatusCode, target)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", target, err)
	}
	return data, nil
}

// FetchRecords downloads a Socrata JSON feed and decodes it into raw records.
// Numbers are kept as json.Number so ids keep their exact formatting.
func FetchRecords(ctx context.Context, client *http.Client, src models.DataSource, maxRetries int) ([]normalize.RawRecord, error) {
	data, err := get(ctx, client, src, "application/json", maxRetries)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", src.Name, err)
	}
	return records, nil
}

// decodeRecords accepts a JSON array of objects, or an object holding that
// array under "data" or "results".
func decodeRecords(data []byte) ([]normalize.RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		return decodeArray(trimmed)
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		for _, key := range []string{"data", "results"} {
			if inner, ok := wrapper[key]; ok {
				return decodeArray(bytes.TrimSpace(inner))
			}
		}
	}
	return nil, errUnrecognizedPayload
}

func decodeArray(data []byte) ([]normalize.RawRecord, error) {
	if len(data) == 0 || data[0] != '[' {
		return nil, errUnrecognizedPayload
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	records := make([]normalize.RawRecord, 0, len(items))
	for _, item := range items {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil || rec == nil {
			// Non-object entries keep their slot so positional ids stay aligned.
			rec = map[string]any{}
		}
		records = append(records, rec)
	}
	return records, nil
}

// FetchGTFS downloads and parses a GTFS static bundle.
func FetchGTFS(ctx context.Context, client *http.Client, src models.DataSource, maxRetries int) (*remoteGtfs.Static, error) {
	data, err := get(ctx, client, src, "application/zip", maxRetries)
	if err != nil {
		return nil, err
	}
	static, err := remoteGtfs.ParseStatic(data, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse GTFS static data from %s: %w", src.URL, err)
	}
	return static, nil
}
