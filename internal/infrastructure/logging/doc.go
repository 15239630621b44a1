// Package logging provides structured logging for hikgate.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("vendor call failed", "path", path, "code", code)
//
// Never log app secrets, signatures, JWTs or passwords. Photo payloads are
// logged by length only.
package logging
