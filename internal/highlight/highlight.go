// Package highlight marks case-insensitive query matches in styled terminal
// text without breaking its escape sequences.
package highlight

import (
	"regexp"
	"strings"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text string
	// Count is the total number of matches.
	Count int
	// Lines lists the 0-based line numbers holding at least one match.
	Lines []int
}

// Step returns the match-line position delta steps away from cur, wrapping
// around. A cur outside the range resets to the first match.
func (r Result) Step(cur, delta int) int {
	n := len(r.Lines)
	if n == 0 {
		return -1
	}
	if cur < 0 || cur >= n {
		return 0
	}
	return ((cur+delta)%n + n) % n
}

// Apply wraps every occurrence of query in input with wrap. Matches never
// span an escape sequence.
func Apply(input, query string, wrap func(string) string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}
	needle := strings.ToLower(query)

	var out strings.Builder
	res := Result{}
	for lineNo, line := range strings.Split(input, "\n") {
		if lineNo > 0 {
			out.WriteByte('\n')
		}
		n := 0
		for _, seg := range segments(line) {
			if seg.escape {
				out.WriteString(seg.text)
				continue
			}
			marked, count := mark(seg.text, needle, wrap)
			out.WriteString(marked)
			n += count
		}
		if n > 0 {
			res.Count += n
			res.Lines = append(res.Lines, lineNo)
		}
	}
	res.Text = out.String()
	return res
}

type segment struct {
	text   string
	escape bool
}

func segments(line string) []segment {
	locs := ansiCSI.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return []segment{{text: line}}
	}
	out := make([]segment, 0, len(locs)*2+1)
	pos := 0
	for _, loc := range locs {
		if loc[0] > pos {
			out = append(out, segment{text: line[pos:loc[0]]})
		}
		out = append(out, segment{text: line[loc[0]:loc[1]], escape: true})
		pos = loc[1]
	}
	if pos < len(line) {
		out = append(out, segment{text: line[pos:]})
	}
	return out
}

// mark assumes needle is already lower-cased. Matching is done on the
// lower-cased text, so only inputs whose lower-casing keeps byte offsets are
// matched exactly; other text is left untouched.
func mark(s, needle string, wrap func(string) string) (string, int) {
	lower := strings.ToLower(s)
	if len(lower) != len(s) || !strings.Contains(lower, needle) {
		return s, 0
	}
	var b strings.Builder
	count := 0
	start := 0
	for {
		rel := strings.Index(lower[start:], needle)
		if rel < 0 {
			b.WriteString(s[start:])
			return b.String(), count
		}
		idx := start + rel
		end := idx + len(needle)
		b.WriteString(s[start:idx])
		b.WriteString(wrap(s[idx:end]))
		count++
		start = end
	}
}
