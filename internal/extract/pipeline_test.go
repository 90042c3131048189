package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/config"
)

const sampleArticleHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Widgets Explained</title>
<meta name="description" content="A deep dive into widgets.">
<meta property="article:published_time" content="2026-01-15T00:00:00Z">
</head>
<body>
<nav><a href="/home">Home</a></nav>
<article>
<h1>Widgets Explained</h1>
<p>` + strings.Repeat("Widgets are small reusable interface components used across the application. ", 40) + `</p>
<h2>Usage</h2>
<p>Call the constructor with a configuration object to build one.</p>
<pre><code class="language-go">import "fmt"

func main() {
	fmt.Println("hello")
}</code></pre>
<p><a href="https://other.example.com/ref">See also</a></p>
</article>
<footer>copyright</footer>
</body>
</html>`

func testExtractConfig() config.ExtractConfig {
	return config.ExtractConfig{
		NeuroSiphonEnabled: true,
		ImportNuking:       true,
		SPAFastPath:        true,
	}
}

func TestExtractProducesPopulatedRecord(t *testing.T) {
	e := NewExtractor(testExtractConfig())

	rec, err := e.Extract(sampleArticleHTML, "https://docs.example.com/widgets", Options{})
	require.NoError(t, err)

	assert.Equal(t, "example.com", rec.Domain)
	assert.Equal(t, "docs", string(rec.SourceType))
	assert.Greater(t, rec.WordCount, 50)
	assert.NotEmpty(t, rec.CleanContent)
	assert.NotEmpty(t, rec.Headings)
	assert.Len(t, rec.CodeBlocks, 1)
	assert.Equal(t, "go", rec.CodeBlocks[0].Language)
	assert.NotContains(t, rec.CodeBlocks[0].Code, "import \"fmt\"", "import-nuking should strip the import line")
	assert.Contains(t, rec.CodeBlocks[0].Code, "fmt.Println")
	assert.Equal(t, "2026-01-15T00:00:00Z", rec.Meta.PublishedAt)
	assert.InDelta(t, 0.85, rec.ExtractionScore, 0.001)
}

func TestExtractRawModeSkipsMainContentDetection(t *testing.T) {
	e := NewExtractor(testExtractConfig())

	rec, err := e.Extract(sampleArticleHTML, "https://blog.example.com/post", Options{Mode: ModeRaw})
	require.NoError(t, err)

	assert.Equal(t, "blog", string(rec.SourceType))
	assert.Contains(t, rec.CleanContent, "Widgets are small reusable")
}

func TestExtractShortPageWarnsAndScoresLow(t *testing.T) {
	e := NewExtractor(testExtractConfig())

	rec, err := e.Extract(`<html><body><p>Too short.</p></body></html>`, "https://example.com/stub", Options{})
	require.NoError(t, err)

	assert.Less(t, rec.WordCount, 50)
	assert.NotEmpty(t, rec.Warnings)
	assert.Less(t, rec.ExtractionScore, 0.5)
}

const githubReadmeHydrationHTML = `<!DOCTYPE html>
<html>
<head><title>acme/widget</title></head>
<body>
<div id="repo-content-pjax-container">
<script type="application/json" data-target="react-app.embeddedData">{"payload":{"readme":"` +
	strings.Repeat("Widget is a small declarative build tool for composing reusable pipeline stages. ", 15) +
	`"}}</script>
<nav><a href="/acme/widget/issues">Issues</a></nav>
<img src="/acme/widget/logo.png">
</div>
</body>
</html>`

func TestExtractGitHubHydrationBecomesSoleContentSourceWhenRequested(t *testing.T) {
	e := NewExtractor(testExtractConfig())

	rec, err := e.Extract(githubReadmeHydrationHTML, "https://github.com/acme/widget", Options{ExtractAppState: true})
	require.NoError(t, err)

	assert.Contains(t, rec.CleanContent, "declarative build tool")
	assert.Empty(t, rec.Links, "hydration sole-content-source must clear app-shell links")
	assert.Empty(t, rec.Images, "hydration sole-content-source must clear app-shell images")
	assert.Empty(t, rec.CodeBlocks)
	assert.NotEmpty(t, rec.EmbeddedStateJSON)
}

func TestExtractGitHubHydrationIgnoredWithoutExtractAppState(t *testing.T) {
	e := NewExtractor(testExtractConfig())

	rec, err := e.Extract(githubReadmeHydrationHTML, "https://github.com/acme/widget", Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.Links, "without extract_app_state the normal link extraction still runs")
}

func TestExtractGitHubHydrationBelowWordFloorLeftAlone(t *testing.T) {
	tiny := `<html><body><script type="application/json" data-target="react-app.embeddedData">{"payload":{"readme":"short"}}</script><article><p>` +
		strings.Repeat("Filler text to keep the surrounding page content intact. ", 10) + `</p></article></body></html>`
	e := NewExtractor(testExtractConfig())

	rec, err := e.Extract(tiny, "https://github.com/acme/widget", Options{ExtractAppState: true})
	require.NoError(t, err)

	assert.NotContains(t, rec.CleanContent, "short", "a hydration payload under the word floor must not become the sole content source")
}

func TestExtractCSSSelectorNarrowsContent(t *testing.T) {
	e := NewExtractor(testExtractConfig())

	rec, err := e.Extract(sampleArticleHTML, "https://docs.example.com/widgets", Options{
		CSSSelector: "article",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.CleanContent)
}

func TestExtractNeuroSiphonDisabledKeepsImports(t *testing.T) {
	cfg := testExtractConfig()
	cfg.ImportNuking = false
	e := NewExtractor(cfg)

	rec, err := e.Extract(sampleArticleHTML, "https://docs.example.com/widgets", Options{})
	require.NoError(t, err)
	require.Len(t, rec.CodeBlocks, 1)
	assert.Contains(t, rec.CodeBlocks[0].Code, "import \"fmt\"")
}
