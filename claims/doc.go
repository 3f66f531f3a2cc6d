// Package claims turns a verified account record and its roles into the ordered
// claim set carried by access tokens.
//
// The package is pure: no I/O, no clock, no shared state. The only source of
// non-determinism is the token id, which is a fresh UUIDv4 per Build call.
package claims
