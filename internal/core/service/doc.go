// Package service provides the domain services behind the access gate.
//
// Services hold the business rules and talk to storage only through the
// storage.Store contract, so every backend (memory, badger, redis) behaves
// the same from their point of view.
//
// This package contains:
//
//   - Realm: generic cookie-session bookkeeping shared by user and admin sessions
//   - TokenService: the invitation token registry (create, list, update, delete)
//   - ExchangeService: redeems an invitation token for a user session
//   - AdminAuthService: operator login and logout against the shared secret
//   - ExpiryResolver: finds the absolute expiry of a redeemed token
//
// Services are safe for concurrent use. Token redemption is a
// read-modify-write that is not atomic unless ExchangeService runs in
// strict mode on a store that implements storage.Swapper.
package service
