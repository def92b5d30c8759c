// Package authcore is the authentication and session-lifecycle engine for
// the careerpilot platform: stateless signed access tokens paired with
// server-tracked rotating refresh tokens that detect reuse, a brute-force
// login guard with sliding-window lockout, and a single-use password-reset
// flow.
//
// Engine methods are safe to call from multiple goroutines once constructed
// through [Builder.Build]. All cross-request ordering relies on per-key
// atomicity of the Redis store; no application-level locks are held across
// store calls.
//
// External collaborators are injected as interfaces: [CredentialStore] for
// credential lookup and password updates, [AuditSink] for the durable
// security-event record, and [ResetDelivery] for handing off reset tokens.
// Audit emission is asynchronous and best-effort; a sink outage never fails
// the caller-visible operation.
package authcore
