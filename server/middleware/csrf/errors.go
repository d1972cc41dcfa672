package csrf

import "errors"

// ErrEmptySecret is returned when a signer is built without a secret.
var ErrEmptySecret = errors.New("csrf: secret must not be empty")

// Validation rejections. Every error returned by Validate and
// CheckDoubleSubmit wraps exactly one of them.
var (
	ErrMalformed    = errors.New("csrf: malformed token")
	ErrBadSignature = errors.New("csrf: bad signature")
	ErrExpired      = errors.New("csrf: token expired")
	ErrMismatch     = errors.New("csrf: header token does not match cookie token")
)

// Reason is the label a rejection is logged and counted under.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMalformed    Reason = "malformed"
	ReasonBadSignature Reason = "bad_signature"
	ReasonExpired      Reason = "expired"
	ReasonMismatch     Reason = "mismatch"
	ReasonUnknown      Reason = "unknown"
)

// ReasonOf maps a validation error to its Reason. A nil error maps to
// ReasonNone.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrMalformed):
		return ReasonMalformed
	case errors.Is(err, ErrBadSignature):
		return ReasonBadSignature
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrMismatch):
		return ReasonMismatch
	default:
		return ReasonUnknown
	}
}
