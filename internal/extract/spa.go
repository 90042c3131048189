package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// hydrationScriptIDs are the script element IDs frameworks use to embed
// server-rendered state as JSON for client-side hydration.
var hydrationScriptIDs = []string{"__NEXT_DATA__", "__NUXT_DATA__", "__REMIX_CONTEXT__"}

// githubHydrationSelector matches the script tag github.com ships its
// React app's server-rendered props in; unlike the frameworks above it
// carries no id, only a data-target attribute.
const githubHydrationSelector = `script[data-target="react-app.embeddedData"]`

var hydrationVarRe = regexp.MustCompile(`(?:window\.__INITIAL_STATE__|window\.__APOLLO_STATE__)\s*=\s*(\{.*?\});?\s*</script>`)

// extractEmbeddedState looks for known SPA hydration payloads (Next.js,
// Nuxt, Remix script tags, GitHub's react-app.embeddedData, or a
// window.__INITIAL_STATE__/__APOLLO_STATE__ assignment) and returns the
// raw JSON text verbatim, or "" if none found.
func extractEmbeddedState(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err == nil {
		for _, id := range hydrationScriptIDs {
			if sel := doc.Find("script#" + id); sel.Length() > 0 {
				if text := strings.TrimSpace(sel.First().Text()); text != "" {
					return text
				}
			}
		}
		if sel := doc.Find(githubHydrationSelector); sel.Length() > 0 {
			if text := strings.TrimSpace(sel.First().Text()); text != "" {
				return text
			}
		}
	}

	if m := hydrationVarRe.FindStringSubmatch(rawHTML); len(m) == 2 {
		return m[1]
	}
	return ""
}

// githubHydrationPayload mirrors just the fields of github.com's
// react-app.embeddedData shape this extractor projects into text; the
// payload carries dozens of other UI-state fields we never read.
type githubHydrationPayload struct {
	Payload struct {
		Blob *struct {
			Text string `json:"text"`
		} `json:"blob"`
		Readme      string `json:"readme"`
		Issue       *struct {
			Body string `json:"body"`
		} `json:"issue"`
		PullRequest *struct {
			Body string `json:"body"`
		} `json:"pullRequest"`
		Discussion *struct {
			Body string `json:"body"`
		} `json:"discussion"`
	} `json:"payload"`
}

// extractGitHubHydrationText parses a react-app.embeddedData JSON blob and
// projects whichever of blob.text / readme / issue.body / pullRequest.body
// / discussion.body is populated, in that priority order. Returns "" if the
// JSON doesn't decode or none of those fields carry content.
func extractGitHubHydrationText(rawJSON string) string {
	var payload githubHydrationPayload
	if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
		return ""
	}
	switch {
	case payload.Payload.Blob != nil && payload.Payload.Blob.Text != "":
		return payload.Payload.Blob.Text
	case payload.Payload.Readme != "":
		return payload.Payload.Readme
	case payload.Payload.Issue != nil && payload.Payload.Issue.Body != "":
		return payload.Payload.Issue.Body
	case payload.Payload.PullRequest != nil && payload.Payload.PullRequest.Body != "":
		return payload.Payload.PullRequest.Body
	case payload.Payload.Discussion != nil && payload.Payload.Discussion.Body != "":
		return payload.Payload.Discussion.Body
	default:
		return ""
	}
}
