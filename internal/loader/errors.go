package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
)

// FormatError is returned for documents that are not session logs.
type FormatError = session.FormatError

// TransportError reports a failed remote fetch. Status is 0 when no HTTP
// response was received.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("remote load failed: HTTP %d", e.Status)
	}
	if e.Err != nil {
		return "remote load failed: " + e.Err.Error()
	}
	return "remote load failed"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports missing cloud credentials or an unavailable
// remote integration.
type ConfigurationError struct {
	Missing []string
	Msg     string
}

func (e *ConfigurationError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "remote loading is not configured"
	}
	if len(e.Missing) > 0 {
		msg += ": missing " + strings.Join(e.Missing, ", ")
	}
	return msg
}

// AuthError reports a consent flow that ended with an error code.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	switch {
	case e.Code != "" && e.Err != nil:
		return fmt.Sprintf("authorization failed (%s): %v", e.Code, e.Err)
	case e.Code != "":
		return fmt.Sprintf("authorization failed: %s", e.Code)
	case e.Err != nil:
		return "authorization failed: " + e.Err.Error()
	default:
		return "authorization failed"
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Message renders err as a single line for the status bar.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		return oneLine("Failed to parse session log: " + fe.Error())
	}
	return oneLine(err.Error())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
