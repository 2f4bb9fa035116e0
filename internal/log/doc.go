// Package log provides logging with automatic redaction of sensitive
// information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic masking of sensitive values (cookies, tokens, auth headers)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The RedactHandler automatically masks sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (passwords, tokens, keys)
//   - Session identifiers and authentication tokens
//
// Site configs can carry per-domain cookies and auth headers for crawling
// logged-in areas; even in verbose mode those values are masked to prevent
// accidental exposure in logs that may be shared or stored.
//
// # Usage
//
//	// Create a logger with redaction
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("request sent",
//	    "cookie", "session=abc123",  // Will be masked
//	    "url", "http://example.com",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
