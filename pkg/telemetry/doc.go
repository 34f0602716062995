// Package telemetry provides structured logging for the stackform CLI.
//
// Logging is built on zerolog with context propagation and field helpers
// scoped to the validation domain (stack, module, kind, report).
//
// Initialize at startup:
//
//	logger, err := telemetry.NewLogger(telemetry.DefaultConfig().Logging)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx = logger.WithContext(ctx)
//
// Component-specific logging:
//
//	log := logger.NewComponentLogger("resolver")
//	log = log.WithStack("prod-site").WithModule("cdn")
//	log.Info("Resolving module references")
//	log.WithError(err).Error("Reference resolution failed")
//
// Log levels: trace, debug, info, warn, error, fatal.
package telemetry
