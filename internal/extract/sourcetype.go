package extract

import "github.com/use-agent/searchscrape/internal/models"

// classifySourceType delegates to the shared taxonomy classifier so the
// HTML Extractor and the Search Fusion stage agree on a URL's source_type.
func classifySourceType(host, path string) models.SourceType {
	return models.ClassifySourceType(host, path)
}
