// Package jwt signs and verifies HS512 access tokens carrying a claims.Set.
//
// Verification recomputes the HMAC before the payload is decoded, then checks
// issuer, audience and expiry in that order. A token is expired from the exact
// exp second onward.
package jwt
