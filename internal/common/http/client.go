package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"candidate-interview/internal/common/logger"
)

// Client sends requests with a fixed timeout and a bounded number of
// transport-level retries. Transport failures and 5xx answers are retried
// after retryDelay*attempt; everything else is returned as is.
type Client struct {
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     logger.Logger
}

type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     logger.Logger
	Transport  http.RoundTripper
}

func NewClient(timeout time.Duration) *Client {
	return NewClientWithOptions(Options{Timeout: timeout})
}

func NewClientWithOptions(opts Options) *Client {
	httpClient := &http.Client{Timeout: opts.Timeout}
	if opts.Transport != nil {
		httpClient.Transport = opts.Transport
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		httpClient: httpClient,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		logger:     log,
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := c.rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}
		if attempt >= c.maxRetries || ctx.Err() != nil {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp.Body.Close()
		}
		delay := c.retryDelay * time.Duration(attempt+1)
		c.logger.Warn("Retrying request", map[string]interface{}{
			"method":  req.Method,
			"path":    req.URL.Path,
			"attempt": attempt + 1,
			"delay":   delay.String(),
			"error":   lastErr.Error(),
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) rewind(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody == nil {
		return fmt.Errorf("request body for %s cannot be replayed", req.URL.Path)
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("replay request body: %w", err)
	}
	req.Body = body
	return nil
}
