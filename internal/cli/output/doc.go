// Package output renders pagegate-cli results as an aligned table, JSON
// or YAML, chosen with the global -o flag.
package output
