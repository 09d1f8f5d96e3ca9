/*
Package logger wraps uber-go/zap behind a small interface with verbosity
levels and field maps. Every sortitor component receives a Logger instead of
reaching for a global.

Basic Usage:

	log := logger.NewLogger(logger.Config{
	    Verbosity: 0,  // Default level (INFO)
	})

	log.Info("Organize started")
	log.Debug("Matching file")     // Only shown with verbosity >= 1
	log.Trace("Probing candidate") // Only shown with verbosity >= 2

Verbosity Levels:

	0: Info, Warn, Error (default)
	1: Debug + Level 0
	2: Trace + Level 1

Structured Logging:

	log.WithFields(logger.Fields{
	    "component": "transfer",
	    "path":      "/src/report.pdf",
	    "folder":    "Documents",
	}).Info("File copied")

Log File:

Setting Config.Tee mirrors every line, at debug level and as JSON, into a
second writer. The CLI uses it for SORTITOR_LOG_FILE.

Embedding sortitor packages without logs:

	log := logger.Nop()

The logger is safe for concurrent use by multiple goroutines.
*/
package logger
