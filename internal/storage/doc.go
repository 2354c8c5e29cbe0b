// Package storage provides the key-value stores behind pagegate.
//
// All durable state lives in two logical namespaces, SESSIONS and TOKENS,
// each exposed as a Store. Three backends implement Store:
//
//   - MemoryStore: sharded in-process maps with lazy TTL expiry
//   - BadgerStore: an embedded Badger database (durable, TTL-aware)
//   - RedisStore: a Redis server reached through go-redis
//
// Backends isolate namespaces by key prefix inside one physical
// database, and list keys in ascending byte order.
package storage
