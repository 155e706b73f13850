package sim

import (
	"log"
)

// LogHookBase is embedded by hooks that print what they observe.
type LogHookBase struct {
	*log.Logger
}

// NewLogHookBase creates a LogHookBase that writes with the given logger. A
// nil logger falls back to the standard logger.
func NewLogHookBase(logger *log.Logger) LogHookBase {
	if logger == nil {
		logger = log.Default()
	}

	return LogHookBase{Logger: logger}
}
