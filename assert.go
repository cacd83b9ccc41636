package tmuxtest

import (
	"fmt"
	"strings"
	"testing"
)

// Equal polls got until it equals want. On timeout it reports an Explain
// diff through t.Errorf and returns false.
func Equal(t testing.TB, got *Output, want string) bool {
	t.Helper()
	ok, err := got.Equals(want)
	if err != nil {
		t.Fatalf("tmuxtest: equal: %v", err)
		return false
	}
	if !ok {
		t.Errorf("%s", failureMessage("equal", got, Explain(OpEqual, got.String(), want)))
	}
	return ok
}

// NotEqual polls got until it differs from want.
func NotEqual(t testing.TB, got *Output, want string) bool {
	t.Helper()
	ok, err := got.NotEquals(want)
	if err != nil {
		t.Fatalf("tmuxtest: not-equal: %v", err)
		return false
	}
	if !ok {
		t.Errorf("%s", failureMessage("not-equal", got, Explain(OpNotEqual, got.String(), want)))
	}
	return ok
}

// Contains polls got until it contains substr.
func Contains(t testing.TB, got *Output, substr string) bool {
	t.Helper()
	ok, err := got.Contains(substr)
	if err != nil {
		t.Fatalf("tmuxtest: contains: %v", err)
		return false
	}
	if !ok {
		t.Errorf("%s", failureMessage("contains", got, Explain(OpIn, substr, got.String())))
	}
	return ok
}

// Match polls got until m matches.
func Match(t testing.TB, got *Output, m Matcher) bool {
	t.Helper()
	ok, desc, err := got.Satisfies(m)
	if err != nil {
		t.Fatalf("tmuxtest: match: %v", err)
		return false
	}
	if !ok {
		lines := append([]string{"waiting for: " + desc, explainSeparator}, strings.Split(got.String(), "\n")...)
		lines = append(lines, explainSeparator)
		t.Errorf("%s", failureMessage("match", got, lines))
	}
	return ok
}

func failureMessage(op string, got *Output, lines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tmuxtest: %s: timed out after %v", op, got.Policy().Timeout)
	for _, l := range lines {
		b.WriteString("\n    ")
		b.WriteString(l)
	}
	return b.String()
}
