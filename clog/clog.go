// Package clog is the leveled logging facade every subsystem that can
// fail mid-operation (transport, handshake, session) logs through,
// instead of writing to the global log package directly.
package clog

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/op/go-logging"
)

// Level is a leveled-logging severity threshold (op-logging's CRITICAL
// down to DEBUG scale). NOTICE is the default a fresh Clog starts at.
type Level = logging.Level

const (
	LevelCritical = logging.CRITICAL
	LevelError    = logging.ERROR
	LevelWarning  = logging.WARNING
	LevelNotice   = logging.NOTICE
	LevelInfo     = logging.INFO
	LevelDebug    = logging.DEBUG
)

// LogProvider is the pluggable backend a Clog calls through. Swapping it
// at runtime via SetLogProvider retargets every subsequent log line
// without touching the caller holding the Clog — a session's transport
// errors can be redirected into a test buffer, a structured sink, or a
// second op-logging module this way.
type LogProvider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Clog is a per-session logging handle: an enable/disable gate in front
// of a LogProvider, plus the op-logging module name needed to retarget
// that provider's severity threshold at runtime.
type Clog struct {
	provider LogProvider
	module   string
	// enabled gates all log output; 1: enabled, 0: disabled.
	enabled uint32
}

// NewLogger creates a Clog backed by its own named op-logging module,
// writing to stdout and filtered at NOTICE by default. module also
// identifies the Clog to later SetLogLevel calls, so two Sessions each
// constructed with a distinct module name can have their verbosity
// raised independently even though op-logging's level table is global.
func NewLogger(module string) Clog {
	backend := logging.NewLogBackend(os.Stdout, module, 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} [%{module}] %{message}`,
	))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(LevelNotice, module)

	logger := logging.MustGetLogger(module)
	logger.SetBackend(leveled)

	return Clog{
		provider: opLogProvider{logger},
		module:   module,
		enabled:  1,
	}
}

// LogMode enables or disables all output from this Clog without
// disturbing its configured level or provider.
func (sf *Clog) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.enabled, 1)
	} else {
		atomic.StoreUint32(&sf.enabled, 0)
	}
}

// SetLogLevel raises or lowers the severity threshold messages must meet
// to be emitted. It is a no-op on a Clog whose provider was replaced by
// SetLogProvider with something other than the default op-logging
// backend, since the level table only exists while op-logging
// intermediates every call.
func (sf *Clog) SetLogLevel(level Level) {
	logging.SetLevel(level, sf.module)
}

// SetLogProvider replaces the backend every subsequent log call is
// routed through. A nil provider is ignored, leaving the previous one
// in place.
func (sf *Clog) SetLogProvider(p LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

func (sf Clog) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.enabled) == 1 {
		sf.provider.Critical(format, v...)
	}
}

func (sf Clog) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.enabled) == 1 {
		sf.provider.Error(format, v...)
	}
}

func (sf Clog) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.enabled) == 1 {
		sf.provider.Warn(format, v...)
	}
}

func (sf Clog) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.enabled) == 1 {
		sf.provider.Debug(format, v...)
	}
}

// opLogProvider adapts an op-logging *logging.Logger to LogProvider,
// folding this package's four-level surface onto op-logging's finer
// CRITICAL/ERROR/WARNING/NOTICE/INFO/DEBUG scale (Warn maps to WARNING,
// the rest line up by name).
type opLogProvider struct {
	logger *logging.Logger
}

var _ LogProvider = opLogProvider{}

func (p opLogProvider) Critical(format string, v ...interface{}) {
	p.logger.Critical(formatf(format, v...))
}

func (p opLogProvider) Error(format string, v ...interface{}) {
	p.logger.Error(formatf(format, v...))
}

func (p opLogProvider) Warn(format string, v ...interface{}) {
	p.logger.Warning(formatf(format, v...))
}

func (p opLogProvider) Debug(format string, v ...interface{}) {
	p.logger.Debug(formatf(format, v...))
}

func formatf(format string, v ...interface{}) string {
	if len(v) == 0 {
		return format
	}
	return fmt.Sprintf(format, v...)
}
