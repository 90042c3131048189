// Package fetch implements the plain HTTP engine: Chrome TLS fingerprinted
// requests (utls), outbound concurrency limiting, pacing jitter, and
// optional proxy/session injection. Grounded on the teacher's
// scraper/httpfetch.go dialTLSChrome idiom and engine/http_engine.go's
// Engine shape, generalized to the escalation controller's FetchRequest.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	tls2 "github.com/refraction-networking/utls"
	xproxy "golang.org/x/net/proxy"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/proxy"
	"github.com/use-agent/searchscrape/internal/session"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Fetcher performs plain HTTP fetches with a Chrome TLS fingerprint,
// honoring proxy/session policy and a process-wide outbound semaphore.
type Fetcher struct {
	cfg      config.ScraperConfig
	proxies  *proxy.Pool
	sessions *session.Store

	sem chan struct{}
}

// NewFetcher builds a Fetcher bounded by cfg.OutboundConcurrency concurrent
// in-flight requests, implemented as a buffered-channel counting semaphore.
func NewFetcher(cfg config.ScraperConfig, proxies *proxy.Pool, sessions *session.Store) *Fetcher {
	n := cfg.OutboundConcurrency
	if n <= 0 {
		n = 32
	}
	return &Fetcher{
		cfg:      cfg,
		proxies:  proxies,
		sessions: sessions,
		sem:      make(chan struct{}, n),
	}
}

// Fetch performs a single HTTP GET honoring req's proxy and session policy.
func (f *Fetcher) Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	req.Defaults()

	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	f.pace(ctx, req.URL)

	var proxyEndpoint string
	if req.ProxyPolicy != models.ProxyOff && f.proxies != nil {
		p, err := f.proxies.Next(nil)
		if err == nil {
			proxyEndpoint = p.Endpoint
		} else if req.ProxyPolicy == models.ProxyRequired {
			return nil, fmt.Errorf("fetch: proxy required but none available: %w", err)
		}
	}

	var jar http.CookieJar
	if req.SessionPolicy == models.SessionAutoInject && f.sessions != nil {
		j, err := f.sessions.JarFor(req.URL)
		if err == nil {
			jar = j
		}
	}

	client, err := f.buildClient(proxyEndpoint, req.Timeout, jar)
	if err != nil {
		return nil, err
	}
	defer client.CloseIdleConnections()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	f.applyHeaders(httpReq, req)

	resp, err := client.Do(httpReq)
	if err != nil {
		if f.proxies != nil && proxyEndpoint != "" {
			f.proxies.RecordResult(proxyEndpoint, false, 0)
		}
		return nil, models.NewTransportError("request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, req.MaxBytes))
	if err != nil {
		return nil, models.NewTransportError("read body failed", err)
	}

	if f.proxies != nil && proxyEndpoint != "" {
		f.proxies.RecordResult(proxyEndpoint, resp.StatusCode < 500, 0)
	}
	if jar != nil && f.sessions != nil {
		_ = f.sessions.Persist(req.URL)
	}

	return &models.FetchResponse{
		Status:     resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
		ViaProxy:   proxyEndpoint,
		Rendered:   false,
		EngineName: "http",
	}, nil
}

func (f *Fetcher) buildClient(proxyEndpoint string, timeout time.Duration, jar http.CookieJar) (*http.Client, error) {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, proxyEndpoint)
		},
	}
	if proxyEndpoint != "" {
		proxyURL, err := url.Parse(proxyEndpoint)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{Transport: transport, Timeout: timeout, Jar: jar}, nil
}

func (f *Fetcher) applyHeaders(req *http.Request, fr models.FetchRequest) {
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Cache-Control", "no-cache")
	if fr.Referer != "" {
		req.Header.Set("Referer", fr.Referer)
	}
	for k, v := range fr.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range fr.Cookies {
		req.AddCookie(c)
	}
}

// pace sleeps a jittered delay before dialing, honoring the configured
// pacing profile and any boss-domain overrides (always cautious pacing).
func (f *Fetcher) pace(ctx context.Context, rawURL string) {
	profile := f.cfg.PacingProfile
	domain := models.RegistrableDomain(hostOf(rawURL))
	for _, boss := range f.cfg.BossDomains {
		if boss == domain {
			profile = "cautious"
			break
		}
	}

	var base, jitter time.Duration
	switch profile {
	case "fast":
		base, jitter = 0, 50*time.Millisecond
	case "cautious":
		base, jitter = 800*time.Millisecond, 600*time.Millisecond
	default: // "polite"
		base, jitter = 150*time.Millisecond, 200*time.Millisecond
	}
	delay := base
	if jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(jitter)))
	}
	if delay <= 0 {
		return
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxyEndpoint string) (net.Conn, error) {
	dialer := &net.Dialer{}
	var rawConn net.Conn
	var err error

	if proxyEndpoint != "" {
		proxyURL, parseErr := url.Parse(proxyEndpoint)
		if parseErr == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			socksDialer, socksErr := xproxy.FromURL(proxyURL, dialer)
			if socksErr != nil {
				return nil, fmt.Errorf("socks5 dialer: %w", socksErr)
			}
			socksConn, socksErr := socksDialer.Dial(network, addr)
			if socksErr != nil {
				return nil, fmt.Errorf("socks5 dial: %w", socksErr)
			}
			rawConn = socksConn
		}
	}

	if rawConn == nil {
		rawConn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName:         host,
		InsecureSkipVerify: false,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
