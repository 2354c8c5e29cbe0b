// Package domain defines the core records of pagegate.
//
// Records are plain value types without IO dependencies:
//
//   - Session: a user session created by redeeming an invitation token
//   - AdminSession: an operator session created by the shared admin secret
//   - Token: an invitation token and its redemption state
//   - Errors: coded errors whose codes double as wire error strings
//
// Every record stored in the key-value store is decoded through a
// Decode function that validates the shape and fails closed.
package domain
