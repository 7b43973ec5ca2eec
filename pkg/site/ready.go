package site

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ReadyOptions tunes WaitReady
type ReadyOptions struct {
	Timeout    time.Duration
	RetryWait  time.Duration
	HTTPClient *http.Client // optional base transport, e.g. for custom TLS
}

// WaitReady polls the site's home URL until it answers with a status below
// 500 or the timeout elapses. Redirects and 4xx answers count as up.
func WaitReady(ctx context.Context, c *Context, opts ReadyOptions) error {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryWaitMin = opts.RetryWait
	client.RetryWaitMax = opts.RetryWait
	// bounded by ctx rather than attempts
	client.RetryMax = int(opts.Timeout/opts.RetryWait) + 1
	if opts.HTTPClient != nil {
		base := *opts.HTTPClient
		client.HTTPClient = &base
	}
	client.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		return resp.StatusCode >= 500, nil
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	home := c.Home()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, home, nil)
	if err != nil {
		return fmt.Errorf("failed to build readiness request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("site %s did not become ready: %w", home, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("site %s did not become ready: status %d", home, resp.StatusCode)
	}
	return nil
}
