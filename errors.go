package tmuxtest

import (
	"fmt"
	"time"
)

// ConfigurationError reports a Policy that cannot drive a comparison.
// It is returned by the first comparison that uses the policy, not when the
// policy is built.
type ConfigurationError struct {
	Field string
	Value time.Duration
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: must not be negative", e.Field, e.Value)
}

// CaptureError wraps a failure returned by a CaptureFunc.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return "capture failed: " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
