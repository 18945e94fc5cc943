// Package audit implements the audit log (C14): a JSON-lines record of
// every operator command executed or rejected, rotated to disk via
// lumberjack. It exists independently of the structured application log so
// a security review can replay exactly which external commands ran,
// with what arguments, and what they returned, without wading through
// unrelated log noise.
package audit

import (
	"encoding/json"
	"log"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger records command execution attempts for security auditing.
type Logger struct {
	logger *log.Logger
}

// New creates a Logger writing JSON-lines records to logPath, rotated by
// lumberjack once it exceeds 100MB, keeping 10 backups for 30 days.
func New(logPath string) *Logger {
	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}
	return &Logger{logger: log.New(writer, "", 0)}
}

// Entry is one audited command invocation.
type Entry struct {
	Project    string
	File       string
	SplitIndex int
	Operator   string
	Command    string
	Args       []string
	ExitCode   int
	DurationMs int64
	Err        error
}

// LogExecution records a command execution attempt, successful or failed.
func (l *Logger) LogExecution(e Entry) {
	record := map[string]interface{}{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"project":     e.Project,
		"file":        e.File,
		"split":       e.SplitIndex,
		"operator":    e.Operator,
		"command":     e.Command,
		"args":        e.Args,
		"result":      "success",
		"exit_code":   e.ExitCode,
		"duration_ms": e.DurationMs,
	}

	if e.Err != nil || e.ExitCode != 0 {
		record["result"] = "failed"
		if e.Err != nil {
			record["error_message"] = e.Err.Error()
		}
	}

	data, _ := json.Marshal(record)
	l.logger.Println(string(data))
}

// LogRejection records a command that was rejected before execution, e.g.
// by security validation.
func (l *Logger) LogRejection(project, file, operator, command string, args []string, reason string) {
	record := map[string]interface{}{
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"project":          project,
		"file":             file,
		"operator":         operator,
		"command":          command,
		"args":             args,
		"result":           "rejected",
		"rejection_reason": reason,
	}

	data, _ := json.Marshal(record)
	l.logger.Println(string(data))
}
