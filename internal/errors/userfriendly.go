package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/lawicel"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapAcquireError wraps failures to find or select an adapter.
func WrapAcquireError(err error, filter string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("No CAN adapter available for %s", filter),
		Reason:  extractAcquireReason(err),
		Hint:    "Check that the adapter is plugged in and enumerates as a USB serial (CDC-ACM) device",
		Try:     "canusb ports --all",
		Err:     err,
	}
}

// WrapTransportError wraps serial open/read/write failures.
func WrapTransportError(err error, port string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Serial communication with %s failed", port),
		Reason:  extractTransportReason(err),
		Hint:    "The adapter may have been unplugged, or another program may be holding the port",
		Try:     fmt.Sprintf("canusb monitor --port %s --debug", port),
		Err:     err,
	}
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Delete the file to regenerate defaults, or fix the listed field",
		Try:     fmt.Sprintf("canusb config init --config %s --force", configPath),
		Err:     err,
	}
}

// WrapValidationError wraps a rejected CAN frame request.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: "CAN frame rejected",
		Reason:  err.Error(),
		Hint:    "IDs are 3 hex characters (8 with --extended), DLC is 0-8, data is DLC*2 hex characters",
		Try:     "canusb send --id 1A2 --dlc 2 --data AABB",
	}
}

// WrapEngineError picks the wrapper matching an engine failure. Errors the
// engine did not classify are returned unchanged.
func WrapEngineError(err error) error {
	if err == nil {
		return nil
	}

	var cerr *engine.ConnectError
	if stderrors.As(err, &cerr) {
		if cerr.Step == engine.StepRequest {
			return WrapAcquireError(cerr.Err, cerr.Port)
		}
		return WrapTransportError(err, cerr.Port)
	}
	var verr *lawicel.ValidationError
	if stderrors.As(err, &verr) {
		return WrapValidationError(err)
	}
	return err
}

func extractAcquireReason(err error) string {
	if stderrors.Is(err, context.Canceled) {
		return "Device selection was cancelled"
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "Timed out waiting for a device"
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "no matching device") {
		return "No connected serial port matches the configured vendor/product identifiers"
	}
	if strings.Contains(errStr, "enumerate") {
		return "Serial port enumeration is not available on this system"
	}
	return "Device selection failed"
}

func extractTransportReason(err error) string {
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "permission denied") {
		return "Permission denied - add your user to the dialout (or uucp) group"
	}
	if strings.Contains(errStr, "busy") {
		return "Port busy - another program has the port open"
	}
	if strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found") {
		return "Port not found - the device may have been unplugged"
	}
	if strings.Contains(errStr, "not open") || strings.Contains(errStr, "closed") {
		return "Port closed while in use"
	}
	return "Serial I/O failed"
}
