// Package logger provides a structured logging interface for igpublisher.
//
// It wraps zerolog behind a small interface so components can be handed a
// logger explicitly and tests can swap in NewTestLogger or NewNopLogger.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("container_id", id).Info("container ready")
//	log.WithError(err).Error("publish failed")
//
// Console output is colorized text on stderr unless the format is json.
// When a file is configured, JSON lines are appended to it as well.
package logger
