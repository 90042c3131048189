package models

import (
	"net/http"
	"time"
)

// ProxyPolicy controls whether a fetch may/must use a proxy.
type ProxyPolicy string

const (
	ProxyOff      ProxyPolicy = "off"
	ProxyOn       ProxyPolicy = "on"
	ProxyRequired ProxyPolicy = "required"
)

// SessionPolicy controls cookie injection from the Session Store.
type SessionPolicy string

const (
	SessionOff        SessionPolicy = "off"
	SessionAutoInject SessionPolicy = "auto-inject"
)

// RenderPolicy selects which fetcher variant handles the request.
type RenderPolicy string

const (
	RenderHTTP    RenderPolicy = "http"
	RenderBrowser RenderPolicy = "browser"
	RenderHITL    RenderPolicy = "hitl"
)

// BlockKind is the closed set of outcomes the Block Detector can assign.
type BlockKind string

const (
	BlockNone           BlockKind = "none"
	BlockRateLimited    BlockKind = "rate-limited"
	BlockSoftBlocked    BlockKind = "soft-blocked"
	BlockAuthWalled     BlockKind = "auth-walled"
	BlockCaptcha        BlockKind = "captcha"
	BlockTransportError BlockKind = "transport-error"
)

// Poisons reports whether this block kind must never be written to cache
// or memory (spec invariant: auth-walled and captcha outcomes poison).
func (b BlockKind) Poisons() bool {
	return b == BlockAuthWalled || b == BlockCaptcha
}

// FetchRequest carries everything a fetcher variant needs to execute one
// outbound attempt.
type FetchRequest struct {
	URL           string
	ProxyPolicy   ProxyPolicy
	SessionPolicy SessionPolicy
	RenderPolicy  RenderPolicy
	Timeout       time.Duration
	MaxBytes      int64

	Headers map[string]string
	Cookies []*http.Cookie
	Referer string

	// WaitForSelector, when set, tells the Browser Renderer to wait for a
	// CSS selector before extracting (used for discussion/issue threads).
	WaitForSelector string
	// UserProfilePath, when set, tells the Browser/HITL Renderer to reuse a
	// persistent profile directory (cookies/sessions across runs).
	UserProfilePath string
}

// Defaults clamps/normalizes a FetchRequest in place per spec.md invariants
// (timeout >= 1s, max-bytes >= 1 KiB).
func (r *FetchRequest) Defaults() {
	if r.Timeout < time.Second {
		r.Timeout = time.Second
	}
	if r.MaxBytes < 1024 {
		r.MaxBytes = 1024
	}
	if r.ProxyPolicy == "" {
		r.ProxyPolicy = ProxyOff
	}
	if r.SessionPolicy == "" {
		r.SessionPolicy = SessionAutoInject
	}
	if r.RenderPolicy == "" {
		r.RenderPolicy = RenderHTTP
	}
}

// FetchResponse is the normalized output of any fetcher variant.
type FetchResponse struct {
	Status     int
	Headers    http.Header
	Body       []byte
	FinalURL   string
	ViaProxy   string
	Rendered   bool
	AuthRisk   float64
	BlockKind  BlockKind
	EngineName string
}
