package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/searchscrape/internal/models"
)

func TestClassifySourceType(t *testing.T) {
	cases := []struct {
		name   string
		domain string
		path   string
		want   models.SourceType
	}{
		{"github repo", "github.com", "/owner/repo", models.SourceRepo},
		{"github subdomain", "gist.github.com", "/owner/abc", models.SourceRepo},
		{"stackoverflow question", "stackoverflow.com", "/questions/1", models.SourceQA},
		{"youtube video", "www.youtube.com", "/watch", models.SourceVideo},
		{"pypi package", "pypi.org", "/project/requests", models.SourcePackage},
		{"docs subdomain", "docs.example.com", "/guide", models.SourceDocs},
		{"docs path segment", "example.com", "/docs/guide", models.SourceDocs},
		{"news domain", "www.reuters.com", "/world", models.SourceNews},
		{"blog subdomain", "blog.example.com", "/post", models.SourceBlog},
		{"blog path segment", "example.com", "/blog/post", models.SourceBlog},
		{"gaming domain", "www.ign.com", "/reviews", models.SourceGaming},
		{"unrecognized falls to other", "example.com", "/random", models.SourceOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifySourceType(tc.domain, tc.path)
			assert.Equal(t, tc.want, got)
		})
	}
}
