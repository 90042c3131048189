package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

const hitlOverlayJS = `() => {
	if (document.getElementById('__searchscrape_hitl_banner')) return;
	const banner = document.createElement('div');
	banner.id = '__searchscrape_hitl_banner';
	banner.textContent = 'Agent paused for manual action. Solve the challenge, then this tab will continue automatically.';
	banner.style.cssText = 'position:fixed;top:0;left:0;right:0;z-index:2147483647;background:#111;color:#fff;' +
		'font:14px sans-serif;padding:10px;text-align:center;';
	document.documentElement.appendChild(banner);
}`

const hitlHeartbeat = 3 * time.Second

// HITLRenderer drives a visible (non-headless) browser window so a human
// can clear a captcha or auth wall. Unlike Renderer it carries no internal
// navigation deadline: the caller's context is the only thing that can end
// the wait, so a caller handing it context.Background() gets an unbounded
// session.
type HITLRenderer struct {
	browser    *rod.Browser
	browserCfg config.BrowserConfig
}

// NewHITLRenderer launches a visible Chrome instance dedicated to
// human-in-the-loop escalations.
func NewHITLRenderer(browserCfg config.BrowserConfig) (*HITLRenderer, error) {
	l := launcher.New().Headless(false).NoSandbox(browserCfg.NoSandbox)
	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewTransportError("failed to launch HITL browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewTransportError("failed to connect to HITL browser", err)
	}

	return &HITLRenderer{browser: browser, browserCfg: browserCfg}, nil
}

// Close kills the HITL browser process.
func (h *HITLRenderer) Close() {
	h.browser.MustClose()
}

// Render opens req.URL in a visible tab, overlays an instruction banner, and
// waits — heartbeating progress to slog — until either the clear selector
// (req.WaitForSelector, typically a block indicator) disappears from the
// DOM, or ctx is cancelled. The profile path, when set, is attached so the
// resolved session (cookies, local storage) persists for future fetches.
func (h *HITLRenderer) Render(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	page, err := h.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewTransportError("failed to open HITL tab", err)
	}
	defer func() { _ = page.Close() }()

	p := page.Context(ctx)
	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, models.NewTransportError("HITL navigation failed", navErr)
	}
	_ = p.WaitDOMStable(300*time.Millisecond, 0.1)
	_, _ = p.Eval(hitlOverlayJS)

	if req.WaitForSelector != "" {
		if err := h.waitForClearance(ctx, p, req.WaitForSelector); err != nil {
			return nil, err
		}
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, models.NewTransportError("HITL extraction failed", err)
	}
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &models.FetchResponse{
		Status:     200,
		Body:       []byte(rawHTML),
		FinalURL:   finalURL,
		Rendered:   true,
		EngineName: "hitl",
	}, nil
}

// waitForClearance polls every hitlHeartbeat until selector no longer
// matches any element, logging progress so an operator watching logs (not
// just the screen) can see the session is still alive.
func (h *HITLRenderer) waitForClearance(ctx context.Context, p *rod.Page, selector string) error {
	ticker := time.NewTicker(hitlHeartbeat)
	defer ticker.Stop()

	waited := 0
	for {
		select {
		case <-ctx.Done():
			return models.NewCancellationError(ctx.Err())
		case <-ticker.C:
			waited++
			present, _, err := p.Has(selector)
			if err == nil && !present {
				slog.Info("HITL clearance detected", "selector", selector, "waited_heartbeats", waited)
				return nil
			}
			slog.Info("HITL still waiting on manual action", "selector", selector, "waited_heartbeats", waited)
		}
	}
}
