// Package browser implements the Browser Renderer and HITL Renderer engine
// tiers: a pooled headless Rod browser with stealth injection and resource
// hijacking, grounded on the teacher's scraper/{scraper,page,hijack}.go.
package browser

import (
	"context"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

// Renderer owns the headless browser process and a bounded page pool.
type Renderer struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	activePages atomic.Int32
}

// NewRenderer launches a headless Chrome instance with the teacher's
// stealth launcher flags and a reusable page pool sized by cfg.MaxPages.
func NewRenderer(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Renderer, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewTransportError("failed to launch browser", err)
	}
	slog.Info("browser renderer launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewTransportError("failed to connect to browser", err)
	}

	return &Renderer{
		browser:    browser,
		pagePool:   rod.NewPagePool(browserCfg.MaxPages),
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}, nil
}

// Close drains the page pool and kills the browser process.
func (r *Renderer) Close() {
	r.pagePool.Cleanup(func(p *rod.Page) { _ = p.Close() })
	r.browser.MustClose()
}

// ActivePages reports the number of currently checked-out pages.
func (r *Renderer) ActivePages() int {
	return int(r.activePages.Load())
}

// Render navigates a pooled page to req.URL with stealth and resource
// hijacking installed before navigation, waits for DOM stability (or a
// caller-specified selector), and returns the rendered HTML.
//
// Step order mirrors the teacher's doScrapeRod: stealth and hijack must be
// mounted before Navigate; the selector or DOM-stability wait runs after
// Navigate returns.
func (r *Renderer) Render(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	req.Defaults()
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	r.activePages.Add(1)
	defer r.activePages.Add(-1)

	page, err := r.pagePool.Get(func() (*rod.Page, error) {
		return r.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewTransportError("failed to acquire page from pool", err)
	}
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("browser cleanup: failed to reset page", "error", navErr)
		}
		r.pagePool.Put(page)
	}()

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without it", "error", err)
	}

	headers := make(map[string]string, len(req.Headers)+1)
	if req.Referer == "" {
		if u, parseErr := url.Parse(req.URL); parseErr == nil {
			headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	} else {
		headers["Referer"] = req.Referer
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	if len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toNetworkHeaders(headers)}.Call(page)
	}

	for _, cookie := range req.Cookies {
		domain := cookie.Domain
		if domain == "" {
			if u, parseErr := url.Parse(req.URL); parseErr == nil {
				domain = u.Host
			}
		}
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		_, _ = proto.NetworkSetCookie{Name: cookie.Name, Value: cookie.Value, Domain: domain, Path: path}.Call(page)
	}

	router := setupHijack(page, r.scraperCfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeNavError(navErr)
	}

	if req.WaitForSelector != "" {
		el, waitErr := p.Timeout(r.scraperCfg.NavigationTimeout).Element(req.WaitForSelector)
		if waitErr == nil {
			_ = el.WaitVisible()
		}
	} else if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding", "error", stableErr)
	}

	statusCode := navigationStatus(p)

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeNavError(htmlErr)
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &models.FetchResponse{
		Status:     statusCode,
		Body:       []byte(rawHTML),
		FinalURL:   finalURL,
		Rendered:   true,
		EngineName: "browser",
	}, nil
}

func navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

func evalStringOrEmpty(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func categorizeNavError(err error) *models.AppError {
	return models.NewTransportError("navigation failed", err)
}
