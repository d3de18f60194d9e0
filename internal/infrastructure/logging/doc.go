// Package logging provides structured logging using uber/zap.
//
// Production loggers write JSON; development loggers write colored console
// lines. Every line carries the service name. Components take a *zap.Logger,
// usually obtained through Logger.Component so every line also carries the
// subsystem; the sandbox adds execution, runtime and bridge fields per script
// through Execution.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Component("sandbox").Info("pool ready", zap.Int("size", 4))
package logging
