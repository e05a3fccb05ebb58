package catpub

import "time"

// ModeFlag is a logging severity threshold.
type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	SilentMode
)

// mode is the minimum severity that will be logged.
var mode = InfoMode

// Logger records messages at different severities.
type Logger interface {
	// Debugf formats its arguments like fmt.Printf and logs the text at Debug level.
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// Shutdown closes any log file.
	Shutdown()
}

// SetLogMode sets the lowest severity that is logged, e.g. SetLogMode(WarningMode)
// keeps warnings and errors.  SilentMode turns off logging.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

func Debugf(format string, args ...interface{}) {
	if mode <= DebugMode {
		logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if mode <= InfoMode {
		logger.Infof(format, args...)
	}
}

func Warningf(format string, args ...interface{}) {
	if mode <= WarningMode {
		logger.Warningf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if mode <= ErrorMode {
		logger.Errorf(format, args...)
	}
}

// Shutdown closes any log file opened by LogConfig.SetLogger.
func Shutdown() {
	logger.Shutdown()
}

// TimeLog appends the time elapsed since its creation to each message.
//
//	tlog := NewTimeLog()
//	...
//	tlog.Infof("Wrote %d skeletons", n)  // "Wrote 3 skeletons: 1.2s"
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{time.Now()}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	if mode <= DebugMode {
		logger.Debugf(format+": %s\n", append(args, time.Since(t.start))...)
	}
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	if mode <= InfoMode {
		logger.Infof(format+": %s\n", append(args, time.Since(t.start))...)
	}
}
