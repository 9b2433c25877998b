package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// daemonClient talks to a running daemon over its HTTP API.
type daemonClient struct {
	base  string
	token string
	http  *http.Client
}

func newDaemonClient(bind, token string) *daemonClient {
	return &daemonClient{
		base:  "http://" + strings.TrimSpace(bind),
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *daemonClient) get(ctx context.Context, path string, owner int64, out any) error {
	return c.do(ctx, http.MethodGet, path, owner, out)
}

func (c *daemonClient) post(ctx context.Context, path string, owner int64, out any) error {
	return c.do(ctx, http.MethodPost, path, owner, out)
}

func (c *daemonClient) do(ctx context.Context, method, path string, owner int64, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if owner > 0 {
		req.Header.Set("X-Owner-ID", strconv.FormatInt(owner, 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			return fmt.Errorf("daemon responded %d: %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("daemon responded %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start it with `lifelogd serve`", base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}
