// Package session implements the persistent, per-registrable-domain cookie
// jar store. Standard library net/http/cookiejar is used directly: no
// repository in the reference pack wraps cookie jars in a reusable
// third-party library, so this is one of the documented stdlib exceptions.
package session

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

// Store manages one cookiejar.Jar per registrable domain, persisted as JSON
// under cfg.Dir/{domain}.json.
type Store struct {
	cfg config.SessionConfig

	mu   sync.Mutex
	jars map[string]*domainJar
}

type domainJar struct {
	mu         sync.Mutex
	jar        *cookiejar.Jar
	createdAt  time.Time
	lastUsedAt time.Time
}

// NewStore creates a session store rooted at cfg.Dir, creating the
// directory if necessary.
func NewStore(cfg config.SessionConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{cfg: cfg, jars: make(map[string]*domainJar)}, nil
}

// JarFor returns the persistent cookie jar for the registrable domain of raw
// URL, loading it from disk on first access within this process.
func (s *Store) JarFor(rawURL string) (http.CookieJar, error) {
	domain, err := domainOf(rawURL)
	if err != nil {
		return nil, err
	}
	return s.jarForDomain(domain)
}

func (s *Store) jarForDomain(domain string) (*cookiejar.Jar, error) {
	s.mu.Lock()
	dj, ok := s.jars[domain]
	if !ok {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		dj = &domainJar{jar: jar, createdAt: time.Now()}
		s.jars[domain] = dj
		s.mu.Unlock()

		if err := s.load(domain, dj); err != nil {
			return nil, err
		}
	} else {
		s.mu.Unlock()
	}

	dj.mu.Lock()
	dj.lastUsedAt = time.Now()
	dj.mu.Unlock()
	return dj.jar, nil
}

// Persist writes the domain's session to disk. Call after a fetch that used
// the jar, so any cookies the server set survive process restarts.
func (s *Store) Persist(rawURL string) error {
	domain, err := domainOf(rawURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	dj, ok := s.jars[domain]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.save(domain, dj)
}

func (s *Store) path(domain string) string {
	return filepath.Join(s.cfg.Dir, domain+".json")
}

func (s *Store) load(domain string, dj *domainJar) error {
	data, err := os.ReadFile(s.path(domain))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return err
	}

	u := domainURL(domain)
	dj.mu.Lock()
	dj.jar.SetCookies(u, sess.Cookies)
	dj.createdAt = sess.CreatedAt
	dj.mu.Unlock()
	return nil
}

func (s *Store) save(domain string, dj *domainJar) error {
	u := domainURL(domain)
	dj.mu.Lock()
	cookies := dj.jar.Cookies(u)
	sess := models.Session{
		Domain:     domain,
		Cookies:    cookies,
		CreatedAt:  dj.createdAt,
		LastUsedAt: dj.lastUsedAt,
	}
	dj.mu.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path(domain) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(domain))
}

// Clear deletes the persisted session for a domain and drops it from the
// in-memory cache. No fetch path calls it; a blocked response leaves the
// stored cookies in place.
func (s *Store) Clear(domain string) error {
	s.mu.Lock()
	delete(s.jars, domain)
	s.mu.Unlock()
	err := os.Remove(s.path(domain))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func domainOf(rawURL string) (string, error) {
	norm, err := models.NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(norm)
	if err != nil {
		return "", err
	}
	return models.RegistrableDomain(u.Hostname()), nil
}

// domainURL builds a synthetic HTTPS URL for a registrable domain, the
// stable key cookiejar.Jar indexes cookies by.
func domainURL(domain string) *url.URL {
	return &url.URL{Scheme: "https", Host: domain, Path: "/"}
}
