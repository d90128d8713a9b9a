// Package client talks to a running `notify serve` over its unix socket.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/internal/journal"
	"github.com/grovetools/notify/internal/server"
	"github.com/grovetools/notify/internal/session"
	"github.com/grovetools/notify/pkg/events"
)

// baseURL is the dummy host used for unix socket requests.
const baseURL = "http://notify"

// maxEventSize bounds one SSE data line.
const maxEventSize = 1 << 20

// Client calls the server's HTTP API over a unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
}

// New creates a client for the server listening on socketPath.
func New(socketPath string) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: unixTransport(socketPath),
			Timeout:   10 * time.Second,
		},
		socketPath: socketPath,
	}
}

func unixTransport(socketPath string) *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    4,
		IdleConnTimeout: 90 * time.Second,
	}
}

// IsRunning reports whether the server answers its health check.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Config returns what the server is watching.
func (c *Client) Config(ctx context.Context) (*server.RunningConfig, error) {
	var cfg server.RunningConfig
	if err := c.get(ctx, "/api/config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Counters returns the session's activity counters.
func (c *Client) Counters(ctx context.Context) (*session.Snapshot, error) {
	var snap session.Snapshot
	if err := c.get(ctx, "/api/counters", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// History queries the server's journal.
func (c *Client) History(ctx context.Context, f journal.Filter) ([]journal.Entry, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(f.Limit))
	if len(f.Kinds) > 0 {
		q.Set("kinds", joinKinds(f.Kinds))
	}
	if f.Session != "" {
		q.Set("session", f.Session)
	}
	if f.PathPrefix != "" {
		q.Set("prefix", f.PathPrefix)
	}
	var entries []journal.Entry
	if err := c.get(ctx, "/api/history?"+q.Encode(), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach notify server at %s: %w", c.socketPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Stream subscribes to live updates, optionally limited to kinds. The
// channel closes when ctx ends or the server goes away.
func (c *Client) Stream(ctx context.Context, kinds []events.Kind) (<-chan hub.Update, error) {
	path := "/api/stream"
	if len(kinds) > 0 {
		path += "?kinds=" + url.QueryEscape(joinKinds(kinds))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	transport := unixTransport(c.socketPath)
	streamClient := &http.Client{Transport: transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	ch := make(chan hub.Update, 16)
	go func() {
		defer close(ch)
		defer transport.CloseIdleConnections()
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var u hub.Update
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &u); err != nil {
				continue
			}
			select {
			case ch <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func joinKinds(kinds []events.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}
