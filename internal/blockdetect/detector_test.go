package blockdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

func newTestDetector() *Detector {
	return NewDetector(config.BlockDetectConfig{
		AuthSelectors:             []string{"input[type='password']"},
		AuthKeywords:              []string{"please log in"},
		CaptchaSignatures:         []string{"g-recaptcha"},
		RateLimitStatuses:         []int{429, 503},
		RateLimitVendorSignatures: []string{"cf-chl-", "datadome"},
		MinBodyLength:             50,
	})
}

func TestClassifyRateLimited(t *testing.T) {
	d := newTestDetector()
	kind, risk := d.Classify(&models.FetchResponse{Status: 429})
	assert.Equal(t, models.BlockRateLimited, kind)
	assert.Equal(t, 1.0, risk)
}

func TestClassifyCaptcha(t *testing.T) {
	d := newTestDetector()
	body := []byte(`<html><body><div class="g-recaptcha"></div></body></html>`)
	kind, _ := d.Classify(&models.FetchResponse{Status: 200, Body: body})
	assert.Equal(t, models.BlockCaptcha, kind)
	assert.True(t, kind.Poisons())
}

func TestClassifyAuthWalled(t *testing.T) {
	d := newTestDetector()
	body := []byte(`<html><body><form><input type="password"></form></body></html>`)
	kind, _ := d.Classify(&models.FetchResponse{Status: 200, Body: body})
	assert.Equal(t, models.BlockAuthWalled, kind)
	assert.True(t, kind.Poisons())
}

func TestClassifyNoneForCleanPage(t *testing.T) {
	d := newTestDetector()
	body := []byte(`<html><body><article>Hello world, this is a normal page.</article></body></html>`)
	kind, risk := d.Classify(&models.FetchResponse{Status: 200, Body: body})
	assert.Equal(t, models.BlockNone, kind)
	assert.Equal(t, 0.0, risk)
	assert.False(t, kind.Poisons())
}

func TestClassifySoftBlockedForShortHeadlessBody(t *testing.T) {
	d := newTestDetector()
	body := []byte(`<html><body>Access denied</body></html>`)
	kind, risk := d.Classify(&models.FetchResponse{Status: 200, Body: body})
	assert.Equal(t, models.BlockSoftBlocked, kind)
	assert.Equal(t, 0.5, risk)
	assert.False(t, kind.Poisons())
}

func TestClassifyNoneForShortBodyWithHeading(t *testing.T) {
	d := newTestDetector()
	body := []byte(`<html><body><h1>Hi</h1></body></html>`)
	kind, _ := d.Classify(&models.FetchResponse{Status: 200, Body: body})
	assert.Equal(t, models.BlockNone, kind)
}

func TestClassifyRateLimitedForVendorChallenge(t *testing.T) {
	d := newTestDetector()
	body := []byte(`<html><body>cf-chl-bypass challenge running</body></html>`)
	kind, risk := d.Classify(&models.FetchResponse{Status: 403, Body: body})
	assert.Equal(t, models.BlockRateLimited, kind)
	assert.Equal(t, 1.0, risk)
}
