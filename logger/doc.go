// Package logger provides structured logging for loop using zerolog.
//
// Pools and workers log their lifecycle at debug level through component
// loggers obtained with Get, so the noise stays off unless the level is
// lowered in configuration.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("parallel")
//	log.Debug("worker exited", logger.Fields(logger.FieldWorker, 3, logger.FieldReason, "drained"))
package logger
