// Package logger is blazar's structured logging on top of log/slog.
//
// Loggers created by New share one runtime level, so a config reload that
// changes log.level reaches every component. Records are passed through a
// redaction step that masks passwords and auth tokens, and connection or
// request ids stored in a context (WithConnID, WithRequestID) are added to
// any record logged through a logger bound with WithContext or L.
package logger
