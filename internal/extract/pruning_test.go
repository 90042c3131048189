package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneContentRetainsCodeHeavyBlockDespiteLowTextDensity(t *testing.T) {
	html := `<html><body>
<nav class="nav"><a href="/1">one</a><a href="/2">two</a><a href="/3">three</a></nav>
<div class="content"><pre><code>func main() {
	fmt.Println("x")
}</code></pre></div>
</body></html>`

	out, err := pruneContent(html)
	require.NoError(t, err)
	assert.Contains(t, out, "fmt.Println")
	assert.NotContains(t, out, `href="/1"`, "nav boilerplate should still score below the threshold")
}

func TestCodeBlockWeightBoostsPreElements(t *testing.T) {
	withCode, err := goquery.NewDocumentFromReader(strings.NewReader(`<div><pre><code>x</code></pre></div>`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, codeBlockWeight(withCode.Find("div").First()))

	plain, err := goquery.NewDocumentFromReader(strings.NewReader(`<div><p>just text</p></div>`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, codeBlockWeight(plain.Find("div").First()))
}
