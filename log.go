package rsec

import "github.com/rs/zerolog"

// logger is the package logger. Disabled by default so the library stays
// silent unless the host application opts in via SetLogger.
var logger = zerolog.Nop()

// SetLogger installs a logger for warning-level events: failed grid
// combinations, degenerate co-clustering fallbacks, and per-node merge test
// failures. Pass zerolog.Nop() to silence the package again.
func SetLogger(l zerolog.Logger) {
	logger = l
}
