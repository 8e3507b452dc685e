package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	file    *os.File
	mu      sync.Mutex
	enabled bool
	logger  = zap.NewNop()
)

// defaultPath is ~/.config/go-midiroll/debug.log
func defaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "go-midiroll", "debug.log")
}

// Enable starts JSON debug logging to path (~/.config/go-midiroll/debug.log if empty). The file
// is truncated; the terminal belongs to the renderer.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}
	if path == "" {
		path = defaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)

	file = f
	logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	enabled = true

	logger.Debug("=== Debug logging started ===", zap.String("cat", "debug"))
	return nil
}

// Disable flushes and stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	_ = logger.Sync()
	if file != nil {
		file.Close()
		file = nil
	}
	logger = zap.NewNop()
	enabled = false
}

// L returns the structured logger (a no-op logger while disabled).
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	l := L()
	if ce := l.Check(zapcore.DebugLevel, ""); ce == nil {
		return
	}
	l.Debug(fmt.Sprintf(format, args...), zap.String("cat", category))
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
