// Package config loads and hot-reloads application configuration from
// environment variables and an optional JSON file.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Browser      BrowserConfig
	Scraper      ScraperConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	Log          LogConfig
	Engine       EngineConfig
	AdaptivePool AdaptivePoolConfig

	Proxy        ProxyConfig
	Session      SessionConfig
	Memory       MemoryConfig
	Embedding    EmbeddingConfig
	Search       SearchConfig
	DeepResearch DeepResearchConfig
	BlockDetect  BlockDetectConfig
	Extract      ExtractConfig
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	EnableMultiEngine bool            // default: true
	EscalationDelays  []time.Duration // default: [0s, 2s, 5s]
	HTTPTimeout       time.Duration   // default: 5s
}

// AdaptivePoolConfig controls the adaptive browser-page pool sizing.
type AdaptivePoolConfig struct {
	MinPages     int     // default: 3
	HardMax      int     // default: 20
	MemThreshold float64 // default: 0.9
	ScaleStep    float64 // default: 0.05
}

// CacheConfig controls the bounded in-memory TTL response cache.
type CacheConfig struct {
	MaxEntries  int           // default: 5000
	DefaultTTL  time.Duration // default: 15m
	ShardCount  int           // default: 16
	CleanupTick time.Duration // default: 1m
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the headless Rod browser instance.
type BrowserConfig struct {
	Headless     bool   // default: true
	MaxPages     int    // default: 10
	DefaultProxy string
	NoSandbox    bool // default: false
	BrowserBin   string
}

// ScraperConfig controls the fetch/escalation timeouts and outbound limits.
type ScraperConfig struct {
	DefaultTimeout       time.Duration // default: 30s
	MaxTimeout           time.Duration // default: 120s
	NavigationTimeout    time.Duration // default: 15s
	BlockedResourceTypes []string      // default: ["Image","Stylesheet","Font","Media"]

	// OutboundConcurrency bounds simultaneous outbound fetches across every
	// engine tier, implemented as a buffered-channel counting semaphore.
	OutboundConcurrency int // default: 32

	// PacingProfile selects the default jitter preset: "fast", "polite",
	// "cautious". Boss-domain overrides live in BossDomains.
	PacingProfile string
	BossDomains   []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// ProxyConfig controls the proxy pool's health and rotation behavior.
type ProxyConfig struct {
	ListFile          string        // flat file, one endpoint per line
	QuarantineCooldown time.Duration // default: 10m
	TestURL           string        // default: "https://icanhazip.com"
	TestTimeout       time.Duration // default: 8s

	// MaxRotationsPerRequest bounds how many distinct proxies the
	// Escalation Controller tries before giving up and escalating to the
	// Browser Renderer. default: 3
	MaxRotationsPerRequest int
}

// SessionConfig controls the per-domain persistent cookie jar store.
type SessionConfig struct {
	Dir        string // default: "{home}/.searchscrape/sessions"
	MaxIdleAge time.Duration // default: 720h (30d)
}

// MemoryConfig controls the persistent research memory (chromem-go).
type MemoryConfig struct {
	PersistPath        string // default: "{home}/.searchscrape/memory"
	Compress           bool   // default: true
	RecentDuplicateTTL time.Duration
	SkipLiveFetchMinSimilarity float64 // default: 0.60
	SkipLiveFetchMinWordCount  int     // default: 50
}

// EmbeddingConfig points at the OpenAI-compatible /embeddings endpoint used
// to vectorize queries for memory recall/persistence (BYOK, same shape as
// DeepResearchConfig's LLM fields).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string // default: "text-embedding-3-small"
}

// SearchConfig controls meta-search fan-out and fusion.
type SearchConfig struct {
	Engines         []string // default: ["google","bing","duckduckgo","brave"]
	PerEngineLimit  int      // default: 10
	FanoutTimeout   time.Duration
	DomainAuthority map[string]float64 // data-driven weight table, resolves Open Question
}

// DeepResearchConfig controls the multi-hop research orchestrator.
type DeepResearchConfig struct {
	Enabled       bool
	MaxSubQueries int // default: 5
	MaxHops       int // default: 2

	// LLMSynthesis mirrors deep_research.synthesis_enabled; when false,
	// deep_research falls back to a heuristic extractive summary instead
	// of calling LLMBaseURL.
	LLMSynthesis        bool
	LLMBaseURL          string
	LLMAPIKey           string
	LLMModel            string
	SynthesisMaxSources int // default: 8
	SynthesisMaxChars   int // default: 4000, per-source char budget fed to the LLM
	SynthesisMaxTokens  int // default: 1024
}

// BlockDetectConfig controls the block-classification heuristics. The
// selector/keyword lists are config-driven, resolving the corresponding
// Open Question rather than hardcoding a fixed taxonomy.
type BlockDetectConfig struct {
	AuthSelectors     []string
	AuthKeywords      []string
	CaptchaSignatures []string
	RateLimitStatuses []int // default: [429, 503]

	// RateLimitVendorSignatures are body substrings that reclassify a 403
	// as rate-limited rather than soft-blocked/auth-walled (Cloudflare
	// challenge fingerprints, Akamai sensor, DataDome interstitial).
	RateLimitVendorSignatures []string

	// MinBodyLength gates the soft-blocked check: a 2xx response whose raw
	// body is shorter than this and carries no heading elements is
	// suspiciously thin rather than a genuine empty page.
	MinBodyLength int // default: 200
}

// ExtractConfig controls the HTML extraction pipeline, including the
// NeuroSiphon transformation toggles.
type ExtractConfig struct {
	MinTextDensity float64
	RelevanceByteBudget int

	// NeuroSiphonEnabled is the master switch; when false none of the four
	// sub-toggles below take effect regardless of their own value.
	NeuroSiphonEnabled bool
	ImportNuking       bool
	SPAFastPath        bool
	SemanticShave      bool
	SearchReranking    bool
}

// Load reads configuration from environment variables with sane defaults,
// then overlays an optional JSON file named by SSCRAPE_CONFIG_FILE.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("SSCRAPE_HOST", "0.0.0.0"),
			Port: envIntOr("SSCRAPE_PORT", 8080),
			Mode: envOr("SSCRAPE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("SSCRAPE_HEADLESS", true),
			MaxPages:     envIntOr("SSCRAPE_MAX_PAGES", 10),
			DefaultProxy: os.Getenv("SSCRAPE_PROXY"),
			NoSandbox:    envBoolOr("SSCRAPE_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("SSCRAPE_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    envDurationOr("SSCRAPE_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:        envDurationOr("SSCRAPE_MAX_TIMEOUT", 120*time.Second),
			NavigationTimeout: envDurationOr("SSCRAPE_NAV_TIMEOUT", 15*time.Second),
			BlockedResourceTypes: envSliceOr("SSCRAPE_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			OutboundConcurrency: envIntOr("SSCRAPE_OUTBOUND_CONCURRENCY", 32),
			PacingProfile:       envOr("SSCRAPE_PACING_PROFILE", "polite"),
			BossDomains:         envSliceOr("SSCRAPE_BOSS_DOMAINS", nil),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SSCRAPE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SSCRAPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SSCRAPE_RATE_RPS", 5.0),
			Burst:             envIntOr("SSCRAPE_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries:  envIntOr("SSCRAPE_CACHE_MAX_ENTRIES", 5000),
			DefaultTTL:  envDurationOr("SSCRAPE_CACHE_TTL", 15*time.Minute),
			ShardCount:  envIntOr("SSCRAPE_CACHE_SHARDS", 16),
			CleanupTick: envDurationOr("SSCRAPE_CACHE_CLEANUP", time.Minute),
		},
		Log: LogConfig{
			Level:  envOr("SSCRAPE_LOG_LEVEL", "info"),
			Format: envOr("SSCRAPE_LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			EnableMultiEngine: envBoolOr("SSCRAPE_MULTI_ENGINE", true),
			EscalationDelays:  envDurationSliceOr("SSCRAPE_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			HTTPTimeout:       envDurationOr("SSCRAPE_HTTP_TIMEOUT", 5*time.Second),
		},
		AdaptivePool: AdaptivePoolConfig{
			MinPages:     envIntOr("SSCRAPE_MIN_PAGES", 3),
			HardMax:      envIntOr("SSCRAPE_HARD_MAX_PAGES", 20),
			MemThreshold: envFloatOr("SSCRAPE_MEM_THRESHOLD", 0.9),
			ScaleStep:    envFloatOr("SSCRAPE_SCALE_STEP", 0.05),
		},
		Proxy: ProxyConfig{
			ListFile:           os.Getenv("SSCRAPE_PROXY_LIST_FILE"),
			QuarantineCooldown: envDurationOr("SSCRAPE_PROXY_COOLDOWN", 10*time.Minute),
			TestURL:            envOr("SSCRAPE_PROXY_TEST_URL", "https://icanhazip.com"),
			TestTimeout:        envDurationOr("SSCRAPE_PROXY_TEST_TIMEOUT", 8*time.Second),
			MaxRotationsPerRequest: envIntOr("SSCRAPE_PROXY_MAX_ROTATIONS", 3),
		},
		Session: SessionConfig{
			Dir:        envOr("SSCRAPE_SESSION_DIR", defaultSessionDir()),
			MaxIdleAge: envDurationOr("SSCRAPE_SESSION_MAX_IDLE", 720*time.Hour),
		},
		Memory: MemoryConfig{
			PersistPath:                envOr("SSCRAPE_MEMORY_DIR", defaultMemoryDir()),
			Compress:                   envBoolOr("SSCRAPE_MEMORY_COMPRESS", true),
			RecentDuplicateTTL:         envDurationOr("SSCRAPE_MEMORY_DEDUP_TTL", 24*time.Hour),
			SkipLiveFetchMinSimilarity: envFloatOr("SSCRAPE_SKIP_LIVE_FETCH_SIM", 0.60),
			SkipLiveFetchMinWordCount:  envIntOr("SSCRAPE_SKIP_LIVE_FETCH_WORDS", 50),
		},
		Embedding: EmbeddingConfig{
			BaseURL: envOr("SSCRAPE_EMBEDDING_BASE_URL", ""),
			APIKey:  os.Getenv("SSCRAPE_EMBEDDING_API_KEY"),
			Model:   envOr("SSCRAPE_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Search: SearchConfig{
			Engines:        envSliceOr("SSCRAPE_SEARCH_ENGINES", []string{"google", "bing", "duckduckgo", "brave"}),
			PerEngineLimit: envIntOr("SSCRAPE_SEARCH_PER_ENGINE_LIMIT", 10),
			FanoutTimeout:  envDurationOr("SSCRAPE_SEARCH_FANOUT_TIMEOUT", 8*time.Second),
			DomainAuthority: defaultDomainAuthority(),
		},
		DeepResearch: DeepResearchConfig{
			Enabled:             envBoolOr("SSCRAPE_RESEARCH_ENABLED", true),
			MaxSubQueries:       envIntOr("SSCRAPE_RESEARCH_MAX_SUBQUERIES", 5),
			MaxHops:             envIntOr("SSCRAPE_RESEARCH_MAX_HOPS", 2),
			LLMSynthesis:        envBoolOr("SSCRAPE_RESEARCH_LLM_SYNTHESIS", false),
			LLMBaseURL:          os.Getenv("SSCRAPE_RESEARCH_LLM_BASE_URL"),
			LLMAPIKey:           os.Getenv("SSCRAPE_RESEARCH_LLM_API_KEY"),
			LLMModel:            os.Getenv("SSCRAPE_RESEARCH_LLM_MODEL"),
			SynthesisMaxSources: envIntOr("SSCRAPE_RESEARCH_SYNTHESIS_MAX_SOURCES", 8),
			SynthesisMaxChars:   envIntOr("SSCRAPE_RESEARCH_SYNTHESIS_MAX_CHARS", 4000),
			SynthesisMaxTokens:  envIntOr("SSCRAPE_RESEARCH_SYNTHESIS_MAX_TOKENS", 1024),
		},
		BlockDetect: BlockDetectConfig{
			AuthSelectors: envSliceOr("SSCRAPE_AUTH_SELECTORS", []string{
				"form[action*='login']", "input[type='password']", "#signin-form",
			}),
			AuthKeywords: envSliceOr("SSCRAPE_AUTH_KEYWORDS", []string{
				"please log in", "sign in to continue", "subscribers only", "members only",
			}),
			CaptchaSignatures: envSliceOr("SSCRAPE_CAPTCHA_SIGNATURES", []string{
				"g-recaptcha", "h-captcha", "cf-turnstile", "/cdn-cgi/challenge-platform",
			}),
			RateLimitStatuses: envIntSliceOr("SSCRAPE_RATE_LIMIT_STATUSES", []int{429, 503}),
			RateLimitVendorSignatures: envSliceOr("SSCRAPE_RATE_LIMIT_VENDOR_SIGNATURES", []string{
				"cf-chl-", "cf-please-wait", "cloudflare", "/_Incapsula_Resource",
				"akamai-bot-manager", "ak_bmsc", "datadome", "dd_block_page",
			}),
			MinBodyLength: envIntOr("SSCRAPE_MIN_BODY_LENGTH", 200),
		},
		Extract: ExtractConfig{
			MinTextDensity:      envFloatOr("SSCRAPE_MIN_TEXT_DENSITY", 0.25),
			RelevanceByteBudget: envIntOr("SSCRAPE_RELEVANCE_BYTE_BUDGET", 12000),
			NeuroSiphonEnabled:  envBoolOr("SSCRAPE_NEUROSIPHON", true),
			ImportNuking:        envBoolOr("SSCRAPE_NEUROSIPHON_IMPORT_NUKING", true),
			SPAFastPath:         envBoolOr("SSCRAPE_NEUROSIPHON_SPA_FASTPATH", true),
			SemanticShave:       envBoolOr("SSCRAPE_NEUROSIPHON_SEMANTIC_SHAVE", true),
			SearchReranking:     envBoolOr("SSCRAPE_NEUROSIPHON_SEARCH_RERANK", true),
		},
	}

	if path := os.Getenv("SSCRAPE_CONFIG_FILE"); path != "" {
		_ = mergeFile(cfg, path)
	}
	return cfg
}

// mergeFile overlays fields present in the JSON file at path onto cfg. A
// missing file is not an error; the env-derived defaults stand.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, cfg)
}

func defaultDomainAuthority() map[string]float64 {
	return map[string]float64{
		"github.com":         1.0,
		"stackoverflow.com":  0.95,
		"developer.mozilla.org": 0.95,
		"wikipedia.org":       0.85,
		"medium.com":          0.55,
		"reddit.com":          0.5,
	}
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".searchscrape/sessions"
	}
	return home + "/.searchscrape/sessions"
}

func defaultMemoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".searchscrape/memory"
	}
	return home + "/.searchscrape/memory"
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envIntSliceOr(key string, fallback []int) []int {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]int, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if i, err := strconv.Atoi(trimmed); err == nil {
					result = append(result, i)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
