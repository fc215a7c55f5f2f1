// Package httpapi exposes the auth engine over HTTP with gin.
//
// The refresh token travels only in an HttpOnly cookie, never in a response
// body, so browser scripts cannot touch it. Access tokens ride the
// Authorization header as a bearer token.
//
// Status mapping follows the engine's error taxonomy: a missing or lapsed
// session answers 401, a fingerprint mismatch answers 403, a logout with
// nothing to end answers 404. Login failures are always a uniform 401.
package httpapi
