// Package handler implements the JSON endpoints behind the access guard:
// token login, admin login and logout, token administration, and health
// probes.
//
// Request bodies are parsed leniently. A missing or malformed body is the
// same as an empty object, and fields of the wrong JSON type are treated as
// absent. Every failure is answered with {"error": code}.
package handler
