// Package refresh tracks the lifecycle of rotating refresh tokens in Redis.
//
// Each user owns a sorted set of currently-active token identifiers (jtis)
// scored by expiry; every rotated or revoked jti gains a tombstone in a
// global blacklist whose TTL matches the token's remaining natural
// lifetime. A jti found in the blacklist can never be accepted again: its
// presence is the reuse-detection contract the engine builds on.
//
// The remove-and-blacklist pair executes as a single Redis script, so two
// requests racing on the same jti resolve to one winner without any
// application-level lock.
package refresh
