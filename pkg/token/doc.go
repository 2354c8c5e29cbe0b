// Package token generates random invitation keys.
//
// A key is an optional caller prefix followed by crypto/rand bytes in
// Base64 RawURL form, so it never contains whitespace and fits the
// 128-character key limit:
//
//	key, err := token.Generate("spring-")  // "spring-q3R0Z9..."
package token
