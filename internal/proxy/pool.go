// Package proxy implements the proxy pool: rotation, health scoring, and
// quarantine, grounded on the teacher's adaptive-pool health idiom
// (errScore-based retirement) but applied to proxy endpoints instead of
// browser pages.
package proxy

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

// Pool is a rotation-aware, health-tracked set of proxies.
type Pool struct {
	cfg config.ProxyConfig

	mu      sync.Mutex
	proxies []*models.Proxy
	cursor  int
}

// NewPool constructs a Pool and, if cfg.ListFile is set, loads the initial
// endpoint list from it. A missing or empty list file is not an error: the
// pool simply starts empty and direct (proxy-less) fetches are used.
func NewPool(cfg config.ProxyConfig) (*Pool, error) {
	p := &Pool{cfg: cfg}
	if cfg.ListFile == "" {
		return p, nil
	}
	entries, err := loadListFile(cfg.ListFile)
	if err != nil {
		return nil, fmt.Errorf("proxy: load list file: %w", err)
	}
	p.proxies = entries
	return p, nil
}

// loadListFile parses a flat text file, one proxy endpoint per line, in
// scheme://host:port form. Blank lines and lines starting with '#' are
// skipped. No ecosystem library in the reference pack targets this narrow a
// format, so bufio/os is used directly rather than pulled in as a dependency.
func loadListFile(path string) ([]*models.Proxy, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []*models.Proxy
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		scheme := models.ProxySchemeHTTP
		switch {
		case strings.HasPrefix(line, "socks5://"):
			scheme = models.ProxySchemeSocks5
		case strings.HasPrefix(line, "https://"):
			scheme = models.ProxySchemeHTTPS
		}
		out = append(out, &models.Proxy{Endpoint: line, Scheme: scheme, Healthy: true})
	}
	return out, scanner.Err()
}

// Add registers a proxy endpoint at runtime.
func (p *Pool) Add(endpoint string, scheme models.ProxyScheme) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxies = append(p.proxies, &models.Proxy{Endpoint: endpoint, Scheme: scheme, Healthy: true})
}

// List returns a snapshot of the pool's current proxies.
func (p *Pool) List() []models.Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Proxy, 0, len(p.proxies))
	for _, pr := range p.proxies {
		out = append(out, *pr)
	}
	return out
}

// ErrNoHealthyProxy is returned by Next when every proxy is quarantined or
// the pool is empty.
var ErrNoHealthyProxy = fmt.Errorf("proxy: no healthy proxy available")

// Next returns the healthy, non-avoided proxy with the lowest recorded
// LastLatencyMs, breaking ties by round-robin cursor position so that a
// cohort of equally-fast (or never-yet-measured, latency 0) proxies still
// rotates instead of pinning to the first one in the slice.
func (p *Pool) Next(avoid map[string]bool) (*models.Proxy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.proxies)
	if n == 0 {
		return nil, ErrNoHealthyProxy
	}
	now := time.Now()

	type candidate struct {
		pr  *models.Proxy
		idx int
	}
	var candidates []candidate
	for i := 0; i < n; i++ {
		idx := (p.cursor + i) % n
		pr := p.proxies[idx]
		if pr.Quarantined(now) {
			continue
		}
		if avoid[pr.Endpoint] {
			continue
		}
		candidates = append(candidates, candidate{pr: pr, idx: idx})
	}
	if len(candidates) == 0 {
		return nil, ErrNoHealthyProxy
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.pr.LastLatencyMs < best.pr.LastLatencyMs {
			best = c
		}
	}
	p.cursor = (best.idx + 1) % n
	return best.pr, nil
}

// RecordResult updates health state for the named endpoint after use.
func (p *Pool) RecordResult(endpoint string, success bool, latencyMs int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pr := range p.proxies {
		if pr.Endpoint != endpoint {
			continue
		}
		now := time.Now()
		if success {
			pr.RecordSuccess(now, latencyMs)
		} else {
			pr.RecordFailure(now, p.cfg.QuarantineCooldown)
			if !pr.Healthy {
				slog.Warn("proxy quarantined", "endpoint", endpoint, "until", pr.Quarantined(now))
			}
		}
		return
	}
}

// Status summarizes pool health for the proxy_control operation.
type Status struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Quarantined int `json:"quarantined"`
}

func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	s := Status{Total: len(p.proxies)}
	for _, pr := range p.proxies {
		if pr.Quarantined(now) {
			s.Quarantined++
		} else if pr.Healthy {
			s.Healthy++
		}
	}
	return s
}
