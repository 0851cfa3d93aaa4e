package tool

import (
	"errors"
	"fmt"
)

// ErrAuthRequired gates every dispatch on an authenticated session.
var ErrAuthRequired = errors.New("authentication required")

// UnknownToolError reports a call naming a tool outside the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ValidationError reports a missing or malformed argument. Param names the
// offending parameter so the model can correct and retry conversationally.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Param, e.Reason)
}

// CapabilityError wraps a provider-side failure from a mail or calendar call.
type CapabilityError struct {
	Tool string
	Err  error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }
