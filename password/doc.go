// Package password implements one-way password hashing and constant-time
// verification with Argon2id. Hashes are self-describing PHC strings, so
// cost parameters can change without invalidating stored credentials.
//
// Password policy (length, character mix) is enforced by the engine, not
// here; this package never sees policy decisions and never logs plaintext.
package password
