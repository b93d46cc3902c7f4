package detect

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match with errors.Is against a *Error.
var (
	// ErrNetwork: no response was received (timeout, DNS, refused).
	// Safe for the caller to retry; the adapter never retries itself.
	ErrNetwork = errors.New("network failure")
	// ErrServer: the backend answered with a non-2xx status.
	ErrServer = errors.New("server error")
	// ErrMalformed: a 2xx body is missing fields required for the
	// requested media type.
	ErrMalformed = errors.New("malformed response")
	// ErrValidation: the request was rejected before any network call.
	ErrValidation = errors.New("invalid request")
)

// Error is the adapter's failure type. Kind is one of the sentinels
// above; Detail carries the backend-provided message verbatim when the
// backend supplied one.
type Error struct {
	Kind       error
	MediaType  MediaType
	StatusCode int
	Detail     string
	cause      error
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" && e.cause != nil {
		msg = e.cause.Error()
	}
	if msg == "" {
		msg = genericMessage(e.MediaType)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.cause }

func genericMessage(mt MediaType) string {
	switch mt {
	case MediaVideo:
		return "video analysis failed"
	case MediaImage:
		return "image analysis failed"
	case MediaAudio:
		return "audio analysis failed"
	case MediaText:
		return "text analysis failed"
	}
	return "analysis failed"
}

func validationErr(mt MediaType, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, MediaType: mt, Detail: fmt.Sprintf(format, args...)}
}

func malformedErr(mt MediaType, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrMalformed, MediaType: mt, Detail: fmt.Sprintf(format, args...)}
}
