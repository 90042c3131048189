package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// setupHijack installs a request interceptor that blocks the configured
// resource types, cutting bandwidth and accelerating DOM rendering. Returns
// nil when there is nothing to block.
func setupHijack(page *rod.Page, blockedTypes []string) *rod.HijackRouter {
	resourceTypes := map[string]proto.NetworkResourceType{
		"Image":      proto.NetworkResourceTypeImage,
		"Stylesheet": proto.NetworkResourceTypeStylesheet,
		"Font":       proto.NetworkResourceTypeFont,
		"Media":      proto.NetworkResourceTypeMedia,
		"Script":     proto.NetworkResourceTypeScript,
	}

	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := resourceTypes[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

func toNetworkHeaders(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
