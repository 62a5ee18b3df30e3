// Package logger provides structured logging on top of zerolog.
//
// Loggers carry a service tag and are derived per component:
//
//	log := logger.Get("enrich").WithFields(logger.Fields(logger.FieldRound, id))
//	log.Warn("identity missing", logger.Fields(logger.FieldIdentity, key))
//
// Console output is meant for terminals; use format "json" for anything
// that gets shipped.
package logger
