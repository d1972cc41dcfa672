// Package csrf implements stateless CSRF protection with signed,
// time-limited tokens.
//
// A token is an HS256 JWS carrying iat, exp and a random jti. It is valid
// while its signature verifies under the process secret and the current
// time lies in [iat, exp). Nothing is stored server side; the client holds
// the token in a cookie and, with double-submit enabled, echoes it in a
// request header on every unsafe request.
//
// Validation is ordered and stops at the first failure: ErrMalformed,
// ErrBadSignature, ErrExpired, ErrMismatch. Guard turns any of them into a
// plain 403 and reports the Reason only to logs and metrics.
package csrf
