// Package command defines the pagegate-cli commands.
//
// Every token command logs in with the admin secret first, so one
// invocation is one admin session:
//
//	pagegate-cli --server https://gate.example.com token list --prefix spring-
//	pagegate-cli token create --generate --prefix guest- --days 7
//	pagegate-cli token update --used=false guest-abc
//	pagegate-cli -o json token delete guest-abc
//	pagegate-cli ping
//	pagegate-cli hash-secret 'correct horse'
package command
