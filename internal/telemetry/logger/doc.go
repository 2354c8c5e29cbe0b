// Package logger provides structured logging for pagegate.
//
// It wraps log/slog:
//
//   - logger.go: handler construction and the shared runtime level
//   - context.go: request id propagation into log records
//   - redact.go: sensitive data masking
//
// Invitation tokens, session ids, cookies and the admin secret are masked by
// attribute key before they reach the output.
package logger
