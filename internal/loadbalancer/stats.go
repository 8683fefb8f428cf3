package loadbalancer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ConnectionStats are the proxy's live connection and request counters.
type ConnectionStats struct {
	ActiveConnections int `json:"active_connections"`
	Accepted          int `json:"accepted"`
	Handled           int `json:"handled"`
	Total             int `json:"total"`
	Reading           int `json:"reading"`
	Writing           int `json:"writing"`
	Waiting           int `json:"waiting"`
}

// StatsTransportError reports a failed status request.
type StatsTransportError struct {
	URL string
	Err error
}

func (e *StatsTransportError) Error() string {
	return fmt.Sprintf("fetching proxy stats from %s: %v", e.URL, e.Err)
}

func (e *StatsTransportError) Unwrap() error { return e.Err }

// StatsParseError reports a structurally malformed status body.
type StatsParseError struct {
	Reason string
}

func (e *StatsParseError) Error() string {
	return "parsing proxy stats: " + e.Reason
}

// StatsClient fetches and parses the proxy's stub-status endpoint.
type StatsClient struct {
	url        string
	httpClient *http.Client
}

func NewStatsClient(url string) *StatsClient {
	return &StatsClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchStats issues the status request and parses the fixed four-line body.
// Failures surface directly; no stale value is ever returned.
func (c *StatsClient) FetchStats(ctx context.Context) (*ConnectionStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &StatsTransportError{URL: c.url, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &StatsTransportError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatsTransportError{URL: c.url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StatsTransportError{URL: c.url, Err: err}
	}

	return parseStubStatus(string(body))
}

// parseStubStatus parses the fixed stub-status format:
//
//	Active connections: 3
//	server accepts handled requests
//	10 10 15
//	Reading: 1 Writing: 2 Waiting: 0
func parseStubStatus(body string) (*ConnectionStats, error) {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) < 4 {
		return nil, &StatsParseError{Reason: fmt.Sprintf("expected 4 lines, got %d", len(lines))}
	}

	stats := &ConnectionStats{}

	const activePrefix = "Active connections:"
	if !strings.HasPrefix(lines[0], activePrefix) {
		return nil, &StatsParseError{Reason: "missing active connections line"}
	}
	active, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(lines[0], activePrefix)))
	if err != nil {
		return nil, &StatsParseError{Reason: "malformed active connections count"}
	}
	stats.ActiveConnections = active

	counters := strings.Fields(lines[2])
	if len(counters) != 3 {
		return nil, &StatsParseError{Reason: "malformed request counters line"}
	}
	values := make([]int, 3)
	for i, field := range counters {
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, &StatsParseError{Reason: "malformed request counter " + field}
		}
		values[i] = v
	}
	stats.Accepted, stats.Handled, stats.Total = values[0], values[1], values[2]

	if _, err := fmt.Sscanf(lines[3], "Reading: %d Writing: %d Waiting: %d",
		&stats.Reading, &stats.Writing, &stats.Waiting); err != nil {
		return nil, &StatsParseError{Reason: "malformed reading/writing/waiting line"}
	}

	return stats, nil
}
