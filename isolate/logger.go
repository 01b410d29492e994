package isolate

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger    atomic.Pointer[zap.Logger]
	nopLogger = zap.NewNop()
)

// Logger returns the package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nopLogger
}

// SetLogger configures the package's logger. Isolates created afterwards
// without WithLogger use it; existing isolates keep theirs. A nil logger
// restores the no-op default.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
