package tmuxtest

import "strings"

// CaptureFunc returns the current text of something that changes on its own,
// such as a tmux pane or one of its rows.
type CaptureFunc func() (string, error)

// Output is a live view of captured text. Every comparison re-captures the
// text until the comparison holds or the policy deadline passes.
//
// Output is not safe for concurrent use: comparisons update the held value
// without locking.
type Output struct {
	capture CaptureFunc
	value   string
	policy  Policy
}

// NewOutput captures once and returns an Output seeded with the result.
// The seed capture is not retried; its failure is returned as a
// *CaptureError.
func NewOutput(capture CaptureFunc, policy Policy) (*Output, error) {
	o := &Output{capture: capture, policy: policy}
	if err := o.refresh(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Output) refresh() error {
	v, err := o.capture()
	if err != nil {
		return &CaptureError{Err: err}
	}
	o.value = v
	return nil
}

// poll re-captures before every call to test.
func (o *Output) poll(test func(value string) bool) (bool, error) {
	return o.policy.Run(func() (bool, error) {
		if err := o.refresh(); err != nil {
			return false, err
		}
		return test(o.value), nil
	})
}

// Equals reports whether the captured text becomes equal to want.
func (o *Output) Equals(want string) (bool, error) {
	return o.poll(func(v string) bool { return v == want })
}

// NotEquals reports whether the captured text becomes different from want.
// It polls on its own rather than inverting Equals, so it succeeds as soon
// as one capture differs.
func (o *Output) NotEquals(want string) (bool, error) {
	return o.poll(func(v string) bool { return v != want })
}

// Contains reports whether the captured text comes to contain substr.
func (o *Output) Contains(substr string) (bool, error) {
	return o.poll(func(v string) bool { return strings.Contains(v, substr) })
}

// Satisfies reports whether the captured text comes to satisfy m. The
// returned description is the one m gave for the last capture.
func (o *Output) Satisfies(m Matcher) (bool, string, error) {
	desc := ""
	ok, err := o.poll(func(v string) bool {
		var matched bool
		matched, desc = m(v)
		return matched
	})
	return ok, desc, err
}

// Value returns the most recently captured text.
func (o *Output) Value() string {
	return o.value
}

// String returns the most recently captured text. It never captures.
func (o *Output) String() string {
	return o.value
}

// Policy returns the retry policy used by comparisons.
func (o *Output) Policy() Policy {
	return o.policy
}
