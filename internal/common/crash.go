// -----------------------------------------------------------------------
// Crash reports for panics that escape the process
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// CrashLogDir is where crash reports are written
var CrashLogDir = "./logs"

// maxStackDump caps the all-goroutine dump
const maxStackDump = 16 * 1024 * 1024

// InstallCrashHandler sets the crash directory and creates it.
// Pair it with a deferred RecoverWithCrashFile in main.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create %s: %v\n", CrashLogDir, err)
	}
}

// WriteCrashFile writes the panic value, stacks and memory figures to
// crash-<timestamp>.log and returns its path. On failure the report goes to
// stderr and the path is empty.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var report strings.Builder
	fmt.Fprintf(&report, "=== SCRIBE CRASH REPORT ===\nTime: %s\nVersion: %s\n\n", time.Now().Format(time.RFC3339), GetFullVersion())
	fmt.Fprintf(&report, "=== PANIC ===\n%v\n\n", panicVal)
	fmt.Fprintf(&report, "=== STACK ===\n%s\n\n", stackTrace)
	fmt.Fprintf(&report, "=== GOROUTINES (%d) ===\n%s\n\n", runtime.NumGoroutine(), GetAllGoroutineStacks())
	fmt.Fprintf(&report, "=== RUNTIME ===\nGOOS/GOARCH: %s/%s\nAlloc: %d MB\nSys: %d MB\nNumGC: %d\n",
		runtime.GOOS, runtime.GOARCH, mem.Alloc>>20, mem.Sys>>20, mem.NumGC)

	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))
	if err := os.WriteFile(crashPath, []byte(report.String()), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n%s", err, report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\nFATAL: panic %v - report saved to %s\n", panicVal, crashPath)
	return crashPath
}

// GetAllGoroutineStacks returns the stacks of every goroutine
func GetAllGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxStackDump {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}

// GetStackTrace returns the current goroutine's stack
func GetStackTrace() string {
	buf := make([]byte, 8192)
	return string(buf[:runtime.Stack(buf, false)])
}

// RecoverWithCrashFile writes a crash report and exits on panic.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, GetStackTrace())
		os.Exit(1)
	}
}
