package proxy

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Test performs a live connectivity check through the given proxy endpoint
// and records the outcome in the pool.
func (p *Pool) Test(ctx context.Context, endpoint string) error {
	proxyURL, err := url.Parse(endpoint)
	if err != nil {
		p.RecordResult(endpoint, false, 0)
		return err
	}

	client := &http.Client{
		Timeout: p.cfg.TestTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.TestURL, nil)
	if err != nil {
		p.RecordResult(endpoint, false, 0)
		return err
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		p.RecordResult(endpoint, false, latency)
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 400
	p.RecordResult(endpoint, ok, latency)
	if !ok {
		return &unhealthyStatusError{status: resp.StatusCode}
	}
	return nil
}

type unhealthyStatusError struct{ status int }

func (e *unhealthyStatusError) Error() string {
	return http.StatusText(e.status)
}
