package models

import "time"

// ProxyScheme is the closed set of supported proxy protocols.
type ProxyScheme string

const (
	ProxySchemeHTTP   ProxyScheme = "http"
	ProxySchemeHTTPS  ProxyScheme = "https"
	ProxySchemeSocks5 ProxyScheme = "socks5"
)

// Proxy is one entry in the ordered proxy pool.
type Proxy struct {
	Endpoint      string      `json:"endpoint"` // scheme://host:port
	Scheme        ProxyScheme `json:"scheme"`
	LastTestedAt  time.Time   `json:"last_tested_at"`
	LastLatencyMs int64       `json:"last_latency_ms"`
	Healthy       bool        `json:"healthy"`

	consecutiveFailures int
	quarantinedUntil    time.Time
}

// Quarantined reports whether the proxy is currently serving its cooldown.
func (p *Proxy) Quarantined(now time.Time) bool {
	return now.Before(p.quarantinedUntil)
}

// RecordFailure increments the failure streak and quarantines the proxy
// after two consecutive failures, per spec.md's invariant.
func (p *Proxy) RecordFailure(now time.Time, cooldown time.Duration) {
	p.consecutiveFailures++
	p.Healthy = p.consecutiveFailures < 2
	if p.consecutiveFailures >= 2 {
		p.quarantinedUntil = now.Add(cooldown)
	}
}

// RecordSuccess clears the failure streak and marks the proxy healthy.
func (p *Proxy) RecordSuccess(now time.Time, latencyMs int64) {
	p.consecutiveFailures = 0
	p.Healthy = true
	p.LastTestedAt = now
	p.LastLatencyMs = latencyMs
	p.quarantinedUntil = time.Time{}
}
