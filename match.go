package tmuxtest

import (
	"fmt"
	"regexp"
	"strings"
)

// A Matcher reports whether captured text satisfies a condition.
// The string return is a human-readable description for failure messages.
type Matcher func(text string) (ok bool, description string)

// Text matches if the text contains the given substring anywhere.
func Text(s string) Matcher {
	return func(text string) (bool, string) {
		return strings.Contains(text, s), fmt.Sprintf("text to contain %q", s)
	}
}

// Regexp matches if the text matches the regular expression.
// The pattern is compiled once; an invalid pattern causes a panic.
func Regexp(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(text string) (bool, string) {
		return re.MatchString(text), fmt.Sprintf("text to match regexp %q", pattern)
	}
}

// Line matches if row n (0-indexed) equals s after trimming trailing spaces.
func Line(n int, s string) Matcher {
	return func(text string) (bool, string) {
		desc := fmt.Sprintf("line %d to equal %q", n, s)
		lines := strings.Split(text, "\n")
		if n < 0 || n >= len(lines) {
			return false, desc
		}
		return strings.TrimRight(lines[n], " ") == s, desc
	}
}

// LineContains matches if row n (0-indexed) contains the substring.
func LineContains(n int, substr string) Matcher {
	return func(text string) (bool, string) {
		desc := fmt.Sprintf("line %d to contain %q", n, substr)
		lines := strings.Split(text, "\n")
		if n < 0 || n >= len(lines) {
			return false, desc
		}
		return strings.Contains(lines[n], substr), desc
	}
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return func(text string) (bool, string) {
		ok, desc := m(text)
		return !ok, "NOT(" + desc + ")"
	}
}

// All matches when every provided matcher matches.
func All(matchers ...Matcher) Matcher {
	return func(text string) (bool, string) {
		descs := make([]string, 0, len(matchers))
		for _, m := range matchers {
			ok, desc := m(text)
			descs = append(descs, desc)
			if !ok {
				return false, "all of: " + strings.Join(descs, ", ")
			}
		}
		return true, "all of: " + strings.Join(descs, ", ")
	}
}

// Any matches when at least one provided matcher matches.
func Any(matchers ...Matcher) Matcher {
	return func(text string) (bool, string) {
		descs := make([]string, 0, len(matchers))
		for _, m := range matchers {
			ok, desc := m(text)
			descs = append(descs, desc)
			if ok {
				return true, "any of: " + strings.Join(descs, ", ")
			}
		}
		return false, "any of: " + strings.Join(descs, ", ")
	}
}

// Empty matches when the text has no visible content.
func Empty() Matcher {
	return func(text string) (bool, string) {
		return strings.TrimSpace(text) == "", "text to be empty"
	}
}
