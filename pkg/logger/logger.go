package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction. Level is debug/info/warn/error;
// Environment is prod/dev (prod selects JSON output); WithSource attaches
// source file:line to each record. LogFilePath, if set, rotates output to
// disk via lumberjack instead of stdout — long
// unattended `run` invocations should always set this so the log file
// never grows unbounded.
type Config struct {
	Level       string
	Environment string
	WithSource  bool
	LogFilePath string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

var (
	global *slog.Logger
	once   sync.Once
)

func levelFromString(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("invalid log level: " + level)
	}
}

// New 根据配置创建新的 slog.Logger，不设置全局实例
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := levelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl, AddSource: cfg.WithSource}

	var out io.Writer = os.Stdout
	if cfg.LogFilePath != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize == 0 {
			maxSize = 100
		}
		maxBackups := cfg.MaxBackups
		if maxBackups == 0 {
			maxBackups = 5
		}
		maxAge := cfg.MaxAgeDays
		if maxAge == 0 {
			maxAge = 28
		}
		out = &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
		}
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Environment) == "prod" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler), nil
}

// Init 初始化全局日志实例，重复调用将返回首次创建的 logger
func Init(cfg Config) (*slog.Logger, error) {
	var initErr error
	once.Do(func() {
		global, initErr = New(cfg)
	})
	return global, initErr
}

// L 返回已初始化的全局 logger，未初始化时 panic
func L() *slog.Logger {
	if global == nil {
		panic("logger.Init must be called before logger.L")
	}
	return global
}

// LogAudioProcessing 记录音频处理事件的结构化日志
// component: asr/sd/embedding/merge
// action: start/success/error/retry
// chunkID: 音频切片 ID
// durationMs: 处理耗时（毫秒）
// errorCode: 错误代码（可选）
func LogAudioProcessing(logger *slog.Logger, component, action string, chunkID int, durationMs int64, errorCode string) {
	attrs := []slog.Attr{
		slog.String("component", component),
		slog.String("action", action),
		slog.Int("chunk_id", chunkID),
		slog.Int64("duration_ms", durationMs),
	}

	if errorCode != "" {
		attrs = append(attrs, slog.String("error_code", errorCode))
		logger.LogAttrs(nil, slog.LevelError, "Audio processing error", attrs...)
	} else {
		logger.LogAttrs(nil, slog.LevelInfo, "Audio processing event", attrs...)
	}
}

// LogStage records entry into or out of a pipeline stage for one split of
// one file within a project. err nil means the stage succeeded.
func LogStage(logger *slog.Logger, project, file string, split int, stage, action string, err error) {
	attrs := []slog.Attr{
		slog.String("project", project),
		slog.String("file", file),
		slog.Int("split", split),
		slog.String("stage", stage),
		slog.String("action", action),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.LogAttrs(nil, slog.LevelError, "stage error", attrs...)
		return
	}
	logger.LogAttrs(nil, slog.LevelInfo, "stage event", attrs...)
}

// LogOperator records one operator invocation against a split, including
// its wall-clock duration. err nil means the operator call succeeded.
func LogOperator(logger *slog.Logger, project, file string, split int, operatorName string, durationMs int64, err error) {
	attrs := []slog.Attr{
		slog.String("project", project),
		slog.String("file", file),
		slog.Int("split", split),
		slog.String("operator", operatorName),
		slog.Int64("duration_ms", durationMs),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.LogAttrs(nil, slog.LevelError, "operator error", attrs...)
		return
	}
	logger.LogAttrs(nil, slog.LevelInfo, "operator event", attrs...)
}
