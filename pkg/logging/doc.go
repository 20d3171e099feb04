// Package logging builds the slog loggers used across cassette.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("session started", "session", "algod", "mode", "replay")
//
// Components accept a *slog.Logger in their options and fall back to
// logging.Nop() when none is given. Each attaches a "component" attribute.
package logging
