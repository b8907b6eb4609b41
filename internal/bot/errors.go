package bot

import "errors"

// Error codes reported in the err_code log field.
const (
	CodeSessionExpired = "SESSION_EXPIRED"
	CodeInvalidAction  = "INVALID_ACTION"
	CodeStoreIO        = "STORE_IO"
	CodeRender         = "RENDER_FAILED"
)

// Error is a domain failure carrying a stable code in Kind.
type Error struct {
	Kind   string
	Reason string
	Err    error
}

func newError(kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Code returns the error code.
func (e *Error) Code() string { return e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
