// Package blockdetect classifies a fetch response into the closed BlockKind
// taxonomy, generalizing the teacher's needsBrowser SPA-shell heuristic in
// scraper/httpfetch.go into a config-driven auth-wall/captcha/rate-limit
// classifier.
package blockdetect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

// Detector classifies FetchResponses using config-driven selector and
// keyword lists, resolving the spec's Open Question on how the auth-wall
// and captcha taxonomy is defined.
type Detector struct {
	cfg config.BlockDetectConfig
}

func NewDetector(cfg config.BlockDetectConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Classify inspects status code and body and returns the BlockKind, along
// with an AuthRisk score in [0,1] reflecting how many independent signals
// fired (used downstream by the escalation controller's confidence gate).
func (d *Detector) Classify(resp *models.FetchResponse) (models.BlockKind, float64) {
	if resp == nil {
		return models.BlockTransportError, 1.0
	}

	for _, status := range d.cfg.RateLimitStatuses {
		if resp.Status == status {
			return models.BlockRateLimited, 1.0
		}
	}
	if resp.Status == 403 {
		for _, sig := range d.cfg.RateLimitVendorSignatures {
			if strings.Contains(string(resp.Body), sig) {
				return models.BlockRateLimited, 1.0
			}
		}
	}
	if resp.Status >= 500 {
		return models.BlockTransportError, 0.6
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body)))
	if err != nil {
		// Unparseable body with a non-error status is not itself a block.
		return models.BlockNone, 0
	}
	lower := strings.ToLower(doc.Text())

	var captchaHits, authHits int
	for _, sig := range d.cfg.CaptchaSignatures {
		if strings.Contains(string(resp.Body), sig) {
			captchaHits++
		}
	}
	if captchaHits > 0 {
		return models.BlockCaptcha, clamp01(float64(captchaHits) / float64(max1(len(d.cfg.CaptchaSignatures))))
	}

	for _, sel := range d.cfg.AuthSelectors {
		if doc.Find(sel).Length() > 0 {
			authHits++
		}
	}
	for _, kw := range d.cfg.AuthKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			authHits++
		}
	}
	if authHits > 0 {
		total := len(d.cfg.AuthSelectors) + len(d.cfg.AuthKeywords)
		return models.BlockAuthWalled, clamp01(float64(authHits) / float64(max1(total)))
	}

	if resp.Status >= 200 && resp.Status < 300 && d.cfg.MinBodyLength > 0 && len(resp.Body) < d.cfg.MinBodyLength {
		if doc.Find("h1,h2,h3,h4,h5,h6").Length() == 0 {
			return models.BlockSoftBlocked, 0.5
		}
	}

	return models.BlockNone, 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
