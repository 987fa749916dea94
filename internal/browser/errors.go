package browser

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout            = errors.New("timed out waiting for condition")
	ErrNoSuchElement      = errors.New("no such element")
	ErrNoSuchWindow       = errors.New("no such window")
	ErrNoAlert            = errors.New("no such alert")
	ErrStaleElement       = errors.New("stale element reference")
	ErrUnsupportedBrowser = errors.New("unsupported browser")
	ErrUnsupportedEngine  = errors.New("unsupported engine")
	ErrUnsupportedLocator = errors.New("unsupported locator")
	ErrSessionClosed      = errors.New("browser session closed")
)

// Error codes reported by the engines. The WebDriver ones are the W3C error
// codes; the other engines translate their failures onto the same set.
const (
	CodeNoSuchElement = "no such element"
	CodeNoSuchWindow  = "no such window"
	CodeNoAlert       = "no such alert"
	CodeStaleElement  = "stale element reference"
	CodeTimeout       = "timeout"
	CodeScriptTimeout = "script timeout"
)

var codeSentinels = map[string]error{
	CodeNoSuchElement: ErrNoSuchElement,
	CodeNoSuchWindow:  ErrNoSuchWindow,
	CodeNoAlert:       ErrNoAlert,
	CodeStaleElement:  ErrStaleElement,
	CodeTimeout:       ErrTimeout,
	CodeScriptTimeout: ErrTimeout,
}

// DriverError wraps an error returned by an engine with the operation that
// produced it and, when known, its WebDriver error code.
type DriverError struct {
	Op   string
	Code string
	Err  error
}

func (e *DriverError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s failed [%s]: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error code.
func (e *DriverError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// WrapError wraps err as a DriverError. A nil err yields nil.
func WrapError(op, code string, err error) error {
	if err == nil {
		return nil
	}
	return &DriverError{Op: op, Code: code, Err: err}
}

// IsNotYet reports whether err means the awaited thing does not exist yet.
// Wait conditions keep polling on these errors.
func IsNotYet(err error) bool {
	return errors.Is(err, ErrNoSuchElement) ||
		errors.Is(err, ErrNoAlert) ||
		errors.Is(err, ErrStaleElement)
}
