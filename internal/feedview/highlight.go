package feedview

import (
	"regexp"
	"unicode/utf8"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

const (
	contextBefore = 80
	contextAfter  = 130
)

// CompileFilter turns a user filter into a case-insensitive pattern. Filters
// that are not valid expressions are matched literally.
func CompileFilter(filter string) *regexp.Regexp {
	if filter == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + filter)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(filter))
	}
	return re
}

// Highlight finds the first match of re in s and returns the surrounding
// phrase as HTML, with the match wrapped in <strong> and "..." marking cut
// ends. It reports false when s is empty or does not match.
func Highlight(re *regexp.Regexp, s string) (string, bool) {
	if s == "" || re == nil {
		return "", false
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	before, cutStart := lastRunes(s[:loc[0]], contextBefore)
	after, cutEnd := firstRunes(s[loc[1]:], contextAfter)

	out := hyper.MakeSafe(before) + "<strong>" + hyper.MakeSafe(s[loc[0]:loc[1]]) + "</strong>" + hyper.MakeSafe(after)
	if cutStart {
		out = "..." + out
	}
	if cutEnd {
		out += "..."
	}
	return out, true
}

func lastRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := len(s)
	for k := 0; k < n; k++ {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:], true
}

func firstRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for k := 0; k < n; k++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], true
}
