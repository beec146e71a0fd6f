package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log = zap.NewNop()

// Init builds the global logger. Console output always; if logDir is set, a
// timestamped JSON log file is written there as well.
func Init(debug bool, logDir string) error {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log dir: %w", err)
		}

		name := time.Now().Format("20060102-150405") + "_mirrord.log"
		f, err := os.Create(filepath.Join(logDir, name))
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}

		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
	}

	Log = zap.New(zapcore.NewTee(cores...))
	return nil
}

func Sync() {
	_ = Log.Sync()
}
