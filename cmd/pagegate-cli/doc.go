// Command pagegate-cli administers invitation tokens on a pagegate server.
//
//	export PAGEGATE_SERVER=https://gate.example.com PAGEGATE_ADMIN_SECRET=...
//	pagegate-cli token create --days 30 spring-guest
//	pagegate-cli -o json token list --all
package main
