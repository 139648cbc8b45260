package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Log levels, lowest first.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]int{
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
}

// LogEntry is a single diagnostic line in json format.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Log writes prefixed diagnostics. Debug and info go to stdout, warnings
// and errors to stderr. Messages below the configured level are dropped.
type Log struct {
	stdout io.Writer
	stderr io.Writer
	level  int
	format string // "json" or "text"
	now    func() time.Time
}

// NewLog creates a Log. Unknown levels fall back to info and unknown formats
// to text.
func NewLog(stdout, stderr io.Writer, level, format string) *Log {
	lvl, ok := levelNames[level]
	if !ok {
		lvl = LevelInfo
	}
	if format != "json" {
		format = "text"
	}
	return &Log{
		stdout: stdout,
		stderr: stderr,
		level:  lvl,
		format: format,
		now:    time.Now,
	}
}

func (l *Log) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, format, args...)
}

func (l *Log) Info(format string, args ...interface{}) {
	l.write(LevelInfo, format, args...)
}

func (l *Log) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, format, args...)
}

func (l *Log) Error(format string, args ...interface{}) {
	l.write(LevelError, format, args...)
}

func (l *Log) write(level int, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	out := l.stdout
	if level >= LevelWarn {
		out = l.stderr
	}
	msg := fmt.Sprintf(format, args...)

	if l.format == "json" {
		entry := LogEntry{
			Timestamp: l.now().Format(time.RFC3339),
			Level:     levelName(level),
			Message:   msg,
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return
		}
		fmt.Fprintf(out, "%s\n", data)
		return
	}

	prefix := "[WATCH]"
	if level != LevelInfo {
		prefix = "[WATCH " + strings.ToUpper(levelName(level)) + "]"
	}
	fmt.Fprintf(out, "%s %s\n", prefix, msg)
}

func levelName(level int) string {
	for name, lvl := range levelNames {
		if lvl == level {
			return name
		}
	}
	return "info"
}
