package tmuxtest

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// sequence returns a CaptureFunc yielding values in order, repeating the
// last one once exhausted.
func sequence(values ...string) (CaptureFunc, *int32) {
	var calls int32
	return func() (string, error) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(values) {
			n = len(values) - 1
		}
		return values[n], nil
	}, &calls
}

var fastPolicy = Policy{Timeout: 100 * time.Millisecond, Delay: 5 * time.Millisecond}

func TestNewOutputSeedsValue(t *testing.T) {
	capture, calls := sequence("seed", "next")
	out, err := NewOutput(capture, fastPolicy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value() != "seed" {
		t.Errorf("expected seed value, got %q", out.Value())
	}
	if *calls != 1 {
		t.Errorf("expected 1 capture, got %d", *calls)
	}
}

func TestNewOutputSeedError(t *testing.T) {
	boom := errors.New("no pane")
	calls := 0
	_, err := NewOutput(func() (string, error) {
		calls++
		return "", boom
	}, fastPolicy)

	var capErr *CaptureError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected *CaptureError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped error to be reachable, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the seed capture not to be retried, got %d calls", calls)
	}
}

func TestStringDoesNotCapture(t *testing.T) {
	capture, calls := sequence("a", "b", "c")
	out, err := NewOutput(capture, fastPolicy)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if got := out.String(); got != "a" {
			t.Errorf("expected %q, got %q", "a", got)
		}
		if got := fmt.Sprint(out); got != "a" {
			t.Errorf("expected %q, got %q", "a", got)
		}
	}
	if *calls != 1 {
		t.Errorf("expected no capture after the seed, got %d calls", *calls)
	}
}

func TestEqualsRecapturesUntilMatch(t *testing.T) {
	capture, calls := sequence("$ ls", "$ ls", "$ ls\nfile.txt")
	out, err := NewOutput(capture, Policy{Timeout: time.Second, Delay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := out.Equals("$ ls\nfile.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected Equals to succeed, last value %q", out.Value())
	}
	if out.Value() != "$ ls\nfile.txt" {
		t.Errorf("expected value to hold the matching capture, got %q", out.Value())
	}
	// The seed capture is not reused: comparisons start from a fresh one.
	if *calls != 3 {
		t.Errorf("expected 3 captures, got %d", *calls)
	}
}

func TestEqualsTimesOutWithLastCapture(t *testing.T) {
	capture, _ := sequence("one", "two", "three")
	out, err := NewOutput(capture, fastPolicy)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := out.Equals("never")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected false")
	}
	if out.Value() != "three" {
		t.Errorf("expected the last capture, got %q", out.Value())
	}
}

func TestNotEqualsIsNotInvertedEquals(t *testing.T) {
	// Equal first, different second: both Equals and NotEquals can succeed
	// on the same output.
	capture, _ := sequence("seed", "x", "y", "y")
	out, err := NewOutput(capture, Policy{Timeout: time.Second, Delay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	if ok, err := out.Equals("x"); err != nil || !ok {
		t.Fatalf("expected Equals(x) to succeed, got (%v, %v)", ok, err)
	}
	if ok, err := out.NotEquals("x"); err != nil || !ok {
		t.Fatalf("expected NotEquals(x) to succeed, got (%v, %v)", ok, err)
	}
	if out.Value() != "y" {
		t.Errorf("expected %q, got %q", "y", out.Value())
	}
}

func TestComparisonsAreIndependent(t *testing.T) {
	capture, calls := sequence("seed", "a", "a", "a")
	out, err := NewOutput(capture, fastPolicy)
	if err != nil {
		t.Fatal(err)
	}

	if ok, _ := out.Equals("a"); !ok {
		t.Fatal("expected Equals to succeed")
	}
	before := atomic.LoadInt32(calls)
	if ok, _ := out.Contains("a"); !ok {
		t.Fatal("expected Contains to succeed")
	}
	if after := atomic.LoadInt32(calls); after != before+1 {
		t.Errorf("expected Contains to capture afresh, captures went %d -> %d", before, after)
	}
}

func TestContains(t *testing.T) {
	capture, _ := sequence("$ ", "$ make\nbuilding", "$ make\nbuilding\ndone")
	out, err := NewOutput(capture, Policy{Timeout: time.Second, Delay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := out.Contains("done")
	if err != nil || !ok {
		t.Fatalf("expected Contains to succeed, got (%v, %v)", ok, err)
	}
}

func TestEmptyStrings(t *testing.T) {
	capture, _ := sequence("")
	out, err := NewOutput(capture, fastPolicy)
	if err != nil {
		t.Fatal(err)
	}

	if ok, _ := out.Equals(""); !ok {
		t.Error("expected empty capture to equal the empty string")
	}
	if ok, _ := out.Contains(""); !ok {
		t.Error("expected every capture to contain the empty string")
	}
	if ok, _ := out.NotEquals(""); ok {
		t.Error("expected NotEquals on an empty capture to time out")
	}
}

func TestComparisonCaptureError(t *testing.T) {
	boom := errors.New("server gone")
	seeded := false
	calls := 0
	out, err := NewOutput(func() (string, error) {
		calls++
		if !seeded {
			seeded = true
			return "seed", nil
		}
		return "", boom
	}, Policy{Timeout: time.Second, Delay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := out.Equals("seed")
	var capErr *CaptureError
	if !errors.As(err, &capErr) || !errors.Is(err, boom) {
		t.Fatalf("expected *CaptureError wrapping %v, got %v", boom, err)
	}
	if ok {
		t.Error("expected false")
	}
	if calls != 2 {
		t.Errorf("expected the failing capture not to be retried, got %d calls", calls)
	}
	if out.Value() != "seed" {
		t.Errorf("expected value to keep the last successful capture, got %q", out.Value())
	}
}

func TestComparisonInvalidPolicy(t *testing.T) {
	capture, calls := sequence("x")
	out, err := NewOutput(capture, Policy{Timeout: -time.Second})
	if err != nil {
		t.Fatalf("expected construction to succeed, got %v", err)
	}

	_, err = out.Equals("x")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
	if *calls != 1 {
		t.Errorf("expected no capture past the seed, got %d", *calls)
	}
}

func TestSatisfiesDescription(t *testing.T) {
	capture, _ := sequence("a", "b")
	out, err := NewOutput(capture, fastPolicy)
	if err != nil {
		t.Fatal(err)
	}

	ok, desc, err := out.Satisfies(Text("b"))
	if err != nil || !ok {
		t.Fatalf("expected match, got (%v, %v)", ok, err)
	}
	if desc != `text to contain "b"` {
		t.Errorf("unexpected description %q", desc)
	}
}

// A prompt that finishes a long-running command after about a second.
func TestSlowCommandScenario(t *testing.T) {
	start := time.Now()
	capture := func() (string, error) {
		if time.Since(start) < time.Second {
			return "$ sleep 1", nil
		}
		return "$ sleep 1\n$ done", nil
	}

	out, err := NewOutput(capture, Policy{Timeout: 2 * time.Second, Delay: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := out.Contains("$ done"); err != nil || !ok {
		t.Fatalf("expected Contains to succeed within the timeout, got (%v, %v)", ok, err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("succeeded after %v, before the command finished", elapsed)
	}

	out, err = NewOutput(capture, Policy{Timeout: 2 * time.Second, Delay: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := out.Equals("$ sleep 1"); ok {
		t.Error("expected Equals on the stale screen to time out")
	}
	if out.Value() != "$ sleep 1\n$ done" {
		t.Errorf("expected the last capture, got %q", out.Value())
	}
}

func TestOperatorsPollIndependently(t *testing.T) {
	policy := Policy{Timeout: time.Second, Delay: time.Millisecond}
	tests := []struct {
		name string
		run  func(*Output) (bool, error)
	}{
		{"contains", func(o *Output) (bool, error) { return o.Contains("b") }},
		{"equals", func(o *Output) (bool, error) { return o.Equals("b") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture, calls := sequence("a", "a", "b")
			out, err := NewOutput(capture, policy)
			if err != nil {
				t.Fatal(err)
			}
			ok, err := tt.run(out)
			if err != nil || !ok {
				t.Fatalf("expected success, got (%v, %v)", ok, err)
			}
			if *calls != 3 {
				t.Errorf("expected success on the 3rd capture, got %d", *calls)
			}
		})
	}
}

func TestEqualsMatchesFirstCapture(t *testing.T) {
	out, err := NewOutput(func() (string, error) { return "$", nil }, Policy{Timeout: 2 * time.Second, Delay: 500 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if ok, err := out.Equals("$"); err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
	if elapsed := time.Since(start); elapsed >= 500*time.Millisecond {
		t.Errorf("expected no retry, took %v", elapsed)
	}
}

func TestEqualsWaitsForPrompt(t *testing.T) {
	start := time.Now()
	out, err := NewOutput(func() (string, error) {
		if time.Since(start) < time.Second {
			return "$", nil
		}
		return "$ done", nil
	}, Policy{Timeout: 2 * time.Second, Delay: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	if ok, err := out.Equals("$ done"); err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("expected success within about 1.2s, took %v", elapsed)
	}
}
