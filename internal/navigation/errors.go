package navigation

import (
	"errors"
	"fmt"
)

const (
	CodeMalformedURI    = "MALFORMED_URI"
	CodeAppNotInstalled = "APP_NOT_INSTALLED"
	CodeNoFallback      = "NO_FALLBACK"
	CodeLaunchRejected  = "LAUNCH_REJECTED"
)

// CodedError is a typed error describing why a handoff degraded.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// HasCode reports whether any CodedError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var coded *CodedError
		if !errors.As(err, &coded) {
			return false
		}
		if coded.Code == code {
			return true
		}
		err = coded.Cause
	}
	return false
}
