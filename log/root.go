package log

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	GFMonitoring       = "gf_mod"       // field table construction
	ParityMonitoring   = "parity_mod"   // P/Q generation and checks
	RecoveryMonitoring = "recovery_mod" // reconstruction and corruption location
	DiskMonitoring     = "disk_mod"     // disk collaborator I/O
	ArrayMonitoring    = "array_mod"    // array operations
	CLIMonitoring      = "cli_mod"      // raid6ctl
)

var root atomic.Value

func init() {
	root.Store(&logger{inner: slog.New(DiscardHandler())})
}

func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToUpper(lvl) {
	case "MAX", "MAXVERBOSITY":
		return levelMaxVerbosity, nil
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "CRIT", "CRITICAL":
		return LevelCrit, nil
	default:
		return 0, fmt.Errorf("invalid level: %s", lvl)
	}
}

func InitLogger(logLevel string) {
	logLvl, err := ParseLevel(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(os.Stderr, logLvl, true)))
}

// SetDefault sets the default global logger
func SetDefault(l Logger) {
	root.Store(l)
	if lg, ok := l.(*logger); ok {
		slog.SetDefault(lg.inner)
	}
}

// Root returns the root logger
func Root() Logger {
	return root.Load().(Logger)
}

var knownModules = []string{GFMonitoring, ParityMonitoring, RecoveryMonitoring, DiskMonitoring, ArrayMonitoring, CLIMonitoring}

// --- Module management ---
// moduleEnabled keeps track of whether a module's Trace/Debug output is enabled.
var (
	moduleMu      sync.RWMutex
	moduleEnabled = make(map[string]bool, len(knownModules))
)

// EnableModule enables logging for the specified module.
func EnableModule(module string) {
	moduleMu.Lock()
	defer moduleMu.Unlock()
	moduleEnabled[module] = true
}

// EnableModules enables a comma separated list of modules; "all" enables
// every known module.
func EnableModules(modules string) {
	for _, m := range strings.Split(modules, ",") {
		m = strings.TrimSpace(m)
		switch m {
		case "":
		case "all":
			for _, k := range knownModules {
				EnableModule(k)
			}
		default:
			EnableModule(m)
		}
	}
}

// DisableModule disables logging for the specified module.
func DisableModule(module string) {
	moduleMu.Lock()
	defer moduleMu.Unlock()
	moduleEnabled[module] = false
}

func isModuleEnabled(module string) bool {
	moduleMu.RLock()
	defer moduleMu.RUnlock()
	return moduleEnabled[module]
}

// Trace logs a message at the trace level for a specific module.
func Trace(module string, msg string, ctx ...interface{}) {
	if !isModuleEnabled(module) {
		return
	}
	Root().Write(LevelTrace, module, msg, ctx...)
}

// Debug logs a message at the debug level for a specific module.
func Debug(module string, msg string, ctx ...interface{}) {
	if !isModuleEnabled(module) {
		return
	}
	Root().Write(slog.LevelDebug, module, msg, ctx...)
}

// The rest of the logging functions (Info, Warn, Error, Crit, New) dont filter on module
func Info(module string, msg string, ctx ...interface{}) {
	Root().Write(slog.LevelInfo, module, msg, ctx...)
}

func Warn(module string, msg string, ctx ...interface{}) {
	Root().Write(slog.LevelWarn, module, msg, ctx...)
}

func Error(module string, msg string, ctx ...interface{}) {
	Root().Write(slog.LevelError, module, msg, ctx...)
}

func Crit(module string, msg string, ctx ...interface{}) {
	Root().Write(LevelCrit, module, msg, ctx...)
	os.Exit(1)
}

// RecordLogs makes the root logger keep every record it handles, so tests
// can assert on what was logged.
func RecordLogs() {
	Root().RecordLogs()
}

func GetRecordedLogs() ([]byte, error) {
	return Root().GetRecordedLogs()
}

func New(ctx ...interface{}) Logger {
	return Root().With(ctx...)
}
