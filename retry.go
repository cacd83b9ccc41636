package tmuxtest

import "time"

// A Probe makes one attempt at a condition. Returning an error stops the
// retry loop immediately; only a false result is retried.
type Probe func() (bool, error)

// Policy bounds how long a Probe is retried.
//
// Termination is purely time based: there is no attempt cap, so a zero
// Delay re-probes as fast as the probe returns.
type Policy struct {
	// Timeout is the polling deadline measured from the first attempt.
	Timeout time.Duration
	// Delay is the pause between a failed attempt and the next one.
	Delay time.Duration
}

// Run calls probe until it returns true or the deadline passes.
//
// The deadline is checked after each failed attempt: while the elapsed time
// is at most Timeout the policy sleeps Delay and tries again, so the last
// attempt may start up to one Delay past the deadline. Exhausting the
// deadline is not an error; Run reports false.
func (p Policy) Run(probe Probe) (bool, error) {
	if err := p.validate(); err != nil {
		return false, err
	}

	start := time.Now()
	for {
		ok, err := probe()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Since(start) > p.Timeout {
			return false, nil
		}
		time.Sleep(p.Delay)
	}
}

func (p Policy) validate() error {
	if p.Timeout < 0 {
		return &ConfigurationError{Field: "timeout", Value: p.Timeout}
	}
	if p.Delay < 0 {
		return &ConfigurationError{Field: "delay", Value: p.Delay}
	}
	return nil
}
