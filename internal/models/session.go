package models

import (
	"net/http"
	"time"
)

// Session is a per-domain persistent cookie jar.
type Session struct {
	Domain     string         `json:"domain"`
	Cookies    []*http.Cookie `json:"cookies"`
	CreatedAt  time.Time      `json:"created_at"`
	LastUsedAt time.Time      `json:"last_used_at"`
}
