// Package jwt issues and verifies the compact signed claims tokens used for
// access and refresh credentials. Validity is purely cryptographic and
// time-based; the package holds no state and performs no I/O.
package jwt
