// Package logger provides structured logging for restkit using zerolog.
//
// Clients log through component-scoped loggers:
//
//	log := logger.WithComponent("restkit.client")
//	log.Debug("attempt failed", logger.Fields(logger.FieldMethod, "GetItem", logger.FieldAttempt, 2))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
package logger
