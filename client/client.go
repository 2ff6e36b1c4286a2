package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/solscope/service/analytics"
	natspkg "github.com/brojonat/solscope/service/nats"
)

// Client is the HTTP client for the solscope analytics service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed: %s", e.Message)
}

// NewClient creates a new analytics service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Block fetches the analyzed report for one slot.
func (c *Client) Block(ctx context.Context, slot uint64) (*analytics.BlockReport, error) {
	u := fmt.Sprintf("%s/api/v1/blocks/%d", c.baseURL, slot)

	var report analytics.BlockReport
	if err := c.getJSON(ctx, u, &report); err != nil {
		return nil, err
	}

	c.logger.Debug("block report fetched", "slot", slot, "transactions", report.TransactionCount)
	return &report, nil
}

// WalletActivity fetches the activity report for a wallet.
// A limit of 0 lets the server apply its default.
func (c *Client) WalletActivity(ctx context.Context, address string, limit int) (*analytics.ActivityReport, error) {
	return c.activity(ctx, "wallets", address, limit)
}

// ProgramActivity fetches the activity report for a program.
// A limit of 0 lets the server apply its default.
func (c *Client) ProgramActivity(ctx context.Context, address string, limit int) (*analytics.ActivityReport, error) {
	return c.activity(ctx, "programs", address, limit)
}

func (c *Client) activity(ctx context.Context, collection, address string, limit int) (*analytics.ActivityReport, error) {
	u := fmt.Sprintf("%s/api/v1/%s/%s/activity", c.baseURL, collection, url.PathEscape(address))
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}

	var report analytics.ActivityReport
	if err := c.getJSON(ctx, u, &report); err != nil {
		return nil, err
	}

	c.logger.Debug("activity report fetched",
		"address", address,
		"kind", report.Kind,
		"limit", report.Limit,
	)
	return &report, nil
}

// Health checks the server health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// StreamActivity connects to the SSE endpoint and calls fn for every activity
// event until ctx is done, the stream ends, or fn returns an error. An empty
// address streams every address.
func (c *Client) StreamActivity(ctx context.Context, address string, fn func(*natspkg.ActivityEvent) error) error {
	u := c.baseURL + "/api/v1/stream/activity"
	if address != "" {
		u += "/" + url.PathEscape(address)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No timeout for streaming; ctx bounds the connection.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var currentEvent, currentData string

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line indicates end of event
		if line == "" {
			if currentEvent == "activity" && currentData != "" {
				var event natspkg.ActivityEvent
				if err := json.Unmarshal([]byte(currentData), &event); err != nil {
					c.logger.Warn("failed to decode activity event", "error", err)
				} else if err := fn(&event); err != nil {
					return err
				}
			}
			currentEvent = ""
			currentData = ""
			continue
		}

		if strings.HasPrefix(line, "event:") {
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			currentData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
}
