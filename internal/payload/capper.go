// Package payload implements the Payload Capper: enforces a byte budget on
// the whole serialized response by truncating in a fixed, deterministic
// order rather than blindly clipping one field.
package payload

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/use-agent/searchscrape/internal/models"
)

// truncateValidUTF8 clips s to at most n bytes, backing off to the nearest
// preceding rune boundary so the result is always valid UTF-8 even when n
// lands in the middle of a multi-byte rune.
func truncateValidUTF8(s string, n int) string {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// CapResult reports what, if anything, the capper had to drop.
type CapResult struct {
	JSON        []byte
	Truncated   bool
	ActualChars int
	Warnings    []string
}

// Cap serializes record and, if the encoding exceeds maxChars, truncates in
// the order images -> links (beyond a floor) -> code_blocks -> clean_content
// until it fits, per spec.md §4.8. The cap applies to the whole payload, not
// any single field in isolation.
func Cap(record *models.ExtractedRecord, maxChars int) (CapResult, error) {
	encoded, err := json.Marshal(record)
	if err != nil {
		return CapResult{}, err
	}
	if maxChars <= 0 || len(encoded) <= maxChars {
		return CapResult{JSON: encoded, ActualChars: len(encoded)}, nil
	}

	working := *record
	const linksFloor = 5
	truncated := false

	steps := []func() bool{
		func() bool {
			if len(working.Images) == 0 {
				return false
			}
			working.Images = nil
			return true
		},
		func() bool {
			if len(working.Links) <= linksFloor {
				return false
			}
			working.Links = working.Links[:linksFloor]
			return true
		},
		func() bool {
			if len(working.CodeBlocks) == 0 {
				return false
			}
			changed := false
			for i := range working.CodeBlocks {
				if len(working.CodeBlocks[i].Code) > 500 {
					working.CodeBlocks[i].Code = truncateValidUTF8(working.CodeBlocks[i].Code, 500)
					changed = true
				}
			}
			return changed
		},
		func() bool {
			if len(working.CodeBlocks) == 0 {
				return false
			}
			working.CodeBlocks = nil
			return true
		},
	}

	for _, step := range steps {
		if step() {
			truncated = true
		}
		encoded, err = json.Marshal(&working)
		if err != nil {
			return CapResult{}, err
		}
		if len(encoded) <= maxChars {
			break
		}
	}

	if len(encoded) > maxChars {
		overshoot := len(encoded) - maxChars
		clipTo := len(working.CleanContent) - overshoot
		if clipTo < 0 {
			clipTo = 0
		}
		if clipTo < len(working.CleanContent) {
			working.CleanContent = truncateValidUTF8(working.CleanContent, clipTo)
			truncated = true
			encoded, err = json.Marshal(&working)
			if err != nil {
				return CapResult{}, err
			}
		}
	}

	var warnings []string
	if truncated {
		warnings = append(warnings, "CLEAN_JSON_PAYLOAD_TRUNCATED")
	}

	return CapResult{
		JSON:        encoded,
		Truncated:   truncated,
		ActualChars: len(encoded),
		Warnings:    warnings,
	}, nil
}
