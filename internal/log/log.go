// Package log wraps github.com/cihub/seelog behind a package-scoped logger
// so call sites never construct or import seelog directly.
package log

import (
	"sync"

	seelog "github.com/cihub/seelog"
)

var (
	mu     sync.RWMutex
	logger seelog.LoggerInterface = seelog.Disabled
)

// Configure builds the console logger used by the daemon. level is one of
// "trace", "debug", "info", "warn", "error", "critical"; unrecognized values
// fall back to "info".
func Configure(level string) error {
	switch level {
	case "trace", "debug", "info", "warn", "error", "critical":
	default:
		level = "info"
	}
	config := `
<seelog minlevel="` + level + `">
	<outputs formatid="main">
		<console/>
	</outputs>
	<formats>
		<format id="main" format="%Time %Date %Level %Msg%n"/>
	</formats>
</seelog>`

	l, err := seelog.LoggerFromConfigAsBytes([]byte(config))
	if err != nil {
		return err
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func current() seelog.LoggerInterface {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Tracef(format string, args ...interface{})    { current().Tracef(format, args...) }
func Debugf(format string, args ...interface{})    { current().Debugf(format, args...) }
func Infof(format string, args ...interface{})     { current().Infof(format, args...) }
func Warnf(format string, args ...interface{})     { _ = current().Warnf(format, args...) }
func Errorf(format string, args ...interface{})    { _ = current().Errorf(format, args...) }
func Criticalf(format string, args ...interface{}) { _ = current().Criticalf(format, args...) }

// Flush blocks until buffered log writes are flushed. Call on shutdown.
func Flush() { current().Flush() }
