package extract

import (
	"regexp"
	"strings"
)

// importLinePatterns match import/include/require statements across the
// common scripting and compiled languages seen in scraped documentation,
// stripped by the import-nuking transform to cut boilerplate that rarely
// helps an LLM reasoning over a single code sample in isolation.
var importLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*import\s+.+$`),                    // Python, Java, Go, JS/TS
	regexp.MustCompile(`(?m)^\s*from\s+\S+\s+import\s+.+$`),       // Python "from x import y"
	regexp.MustCompile(`(?m)^\s*(const|let|var)\s+.+=\s*require\(.+\)\s*;?\s*$`), // Node require
	regexp.MustCompile(`(?m)^\s*#include\s+[<"].+[>"]\s*$`),       // C/C++
	regexp.MustCompile(`(?m)^\s*using\s+[\w.]+;\s*$`),             // C#
)

// nukeImports strips whole-line import/include/require statements from a
// code sample when the NeuroSiphon import-nuking toggle is enabled. It
// never touches a line that isn't a full statement match, so inline uses of
// these keywords inside other code are left alone.
func nukeImports(code string) string {
	lines := strings.Split(code, "\n")
	out := lines[:0]
	for _, line := range lines {
		stripped := false
		for _, re := range importLinePatterns {
			if re.MatchString(line) {
				stripped = true
				break
			}
		}
		if !stripped {
			out = append(out, line)
		}
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}
