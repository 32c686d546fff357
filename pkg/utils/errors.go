package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrInvalidURL        = errors.New("invalid or unsafe URL")             // Sanitizer rejection
	ErrNavigationTimeout = errors.New("navigation timed out")              // Capture navigation exceeded its bound
	ErrNavigationFailure = errors.New("navigation failed")                 // DNS/connection/protocol failure during capture
	ErrHarvestFailure    = errors.New("cookie harvest failed")             // Never surfaced to callers
	ErrTeardown          = errors.New("session teardown failed")           // Swallowed by the orchestrator
	ErrMalformedLink     = errors.New("malformed link")                    // One anchor dropped
	ErrCapture           = errors.New("page capture failed")               // Screenshot or DOM snapshot failed
	ErrSessionLaunch     = errors.New("failed to launch browser session")  // Browser process could not start
	ErrEngineNotFound    = errors.New("rendering engine binary not found") // Fatal at startup
	ErrConfigValidation  = errors.New("configuration validation error")
)

// InvalidURLMessage is the only text a caller ever sees for a sanitizer rejection.
const InvalidURLMessage = "Invalid or unsafe URL."

// IsUserVisible reports whether an error belongs to a class that is surfaced to the caller.
// Everything else is absorbed where it happens.
func IsUserVisible(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrNavigationTimeout),
		errors.Is(err, ErrNavigationFailure),
		errors.Is(err, ErrCapture),
		errors.Is(err, ErrSessionLaunch):
		return true
	}
	return false
}

// WrapErrorf adds context to err, keeping it matchable with errors.Is; a nil err stays nil
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return "Input_InvalidURL"
	case errors.Is(err, ErrNavigationTimeout):
		return "Navigation_Timeout"
	case errors.Is(err, ErrNavigationFailure):
		// The browser reports network errors as net::ERR_* strings
		errMsg := err.Error()
		if strings.Contains(errMsg, "ERR_NAME_NOT_RESOLVED") {
			return "Navigation_DNSLookup"
		}
		if strings.Contains(errMsg, "ERR_CONNECTION_REFUSED") {
			return "Navigation_ConnectionRefused"
		}
		if strings.Contains(errMsg, "ERR_CERT") || strings.Contains(errMsg, "ERR_SSL") {
			return "Navigation_TLS"
		}
		if strings.Contains(errMsg, "ERR_BLOCKED_BY_CLIENT") {
			return "Navigation_Blocked"
		}
		return "Navigation_Other"
	case errors.Is(err, ErrHarvestFailure):
		return "Harvest_Failure"
	case errors.Is(err, ErrTeardown):
		return "Session_Teardown"
	case errors.Is(err, ErrMalformedLink):
		return "Content_MalformedLink"
	case errors.Is(err, ErrCapture):
		return "Content_Capture"
	case errors.Is(err, ErrSessionLaunch):
		return "Session_Launch"
	case errors.Is(err, ErrEngineNotFound):
		return "Config_EngineNotFound"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}

	return "Unknown"
}
