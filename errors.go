package streamline

import (
	"errors"
	"fmt"
)

// Result is the error taxonomy every host-facing entry point returns --
// a kind, not a Go error type, matching the original ABI's enum-return
// contract. Use Err to wrap one with call-site context when propagating it
// as a Go error.
type Result int

const (
	ResultOk Result = iota

	// Lifecycle / contract violations.
	ResultNotInitialized
	ResultInitNotCalled
	ResultInvalidParameter
	ResultMissingInputParameter
	ResultInvalidIntegration

	// Per-frame data contract.
	ResultMissingConstants
	ResultDuplicatedConstants
	ResultMissingResourceState

	// Capability gating.
	ResultFeatureMissing
	ResultFeatureNotSupported
	ResultAdapterNotSupported
	ResultOSOutOfDate
	ResultDriverOutOfDate
	ResultOSDisabledHWS

	// Binding failures.
	ResultMissingOrInvalidAPI
	ResultUnsupportedInterface

	// Downstream failure.
	ResultNGXFailed
	ResultD3DAPI
	ResultExceptionHandler

	// Operational.
	ResultTimeout
	ResultNotFound
	ResultStale
)

func (r Result) String() string {
	switch r {
	case ResultOk:
		return "eOk"
	case ResultNotInitialized:
		return "eErrorNotInitialized"
	case ResultInitNotCalled:
		return "eErrorInitNotCalled"
	case ResultInvalidParameter:
		return "eErrorInvalidParameter"
	case ResultMissingInputParameter:
		return "eErrorMissingInputParameter"
	case ResultInvalidIntegration:
		return "eErrorInvalidIntegration"
	case ResultMissingConstants:
		return "eErrorMissingConstants"
	case ResultDuplicatedConstants:
		return "eErrorDuplicatedConstants"
	case ResultMissingResourceState:
		return "eErrorMissingResourceState"
	case ResultFeatureMissing:
		return "eErrorFeatureMissing"
	case ResultFeatureNotSupported:
		return "eErrorFeatureNotSupported"
	case ResultAdapterNotSupported:
		return "eErrorAdapterNotSupported"
	case ResultOSOutOfDate:
		return "eErrorOSOutOfDate"
	case ResultDriverOutOfDate:
		return "eErrorDriverOutOfDate"
	case ResultOSDisabledHWS:
		return "eErrorOSDisabledHWS"
	case ResultMissingOrInvalidAPI:
		return "eErrorMissingOrInvalidAPI"
	case ResultUnsupportedInterface:
		return "eErrorUnsupportedInterface"
	case ResultNGXFailed:
		return "eErrorNGXFailed"
	case ResultD3DAPI:
		return "eErrorD3DAPI"
	case ResultExceptionHandler:
		return "eErrorExceptionHandler"
	case ResultTimeout:
		return "eTimeout"
	case ResultNotFound:
		return "eNotFound"
	case ResultStale:
		return "eStale"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Error wraps a Result with the call-site context, implementing Go's error
// interface for the places this module's internal plumbing prefers a normal
// error return over a bare Result (everything under internal/ and core/,
// chi/, plugin/); the host-facing ABI in this package still returns Result
// directly, unwrapping via AsResult at the boundary.
type Error struct {
	Result Result
	Op     string // e.g. "setConstants", "evaluateFeature"
	Err    error  // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Result, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Result)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs an *Error for op failing with kind, optionally
// wrapping cause.
func NewError(op string, kind Result, cause error) *Error {
	return &Error{Result: kind, Op: op, Err: cause}
}

// AsResult unwraps err to the Result a host-facing entry point should
// return: ResultOk for a nil error, the wrapped Result for an *Error, and
// ResultD3DAPI (the catch-all "something downstream failed") for any other
// non-nil error.
func AsResult(err error) Result {
	if err == nil {
		return ResultOk
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Result
	}
	return ResultD3DAPI
}
