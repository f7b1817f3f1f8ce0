package poller

import "fmt"

// ConfigurationError is a startup check that failed. It is never retried.
type ConfigurationError struct {
	Target string // "broker" or "sheet"
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s configuration is invalid: %v", e.Target, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// StepError ties a failure to the state it happened in.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
