// Package logging provides structured logging for evaluation runs.
package logging

import (
	"context"
	"log"
	"strings"
	"time"
)

// Logger provides structured logging for usage accounting runs.
type Logger interface {
	// LogCall logs one parsed generation call
	LogCall(ctx context.Context, call CallLog)

	// LogSummary logs the aggregate result of a run
	LogSummary(ctx context.Context, summary SummaryLog)

	// LogError logs a per-call failure
	LogError(ctx context.Context, err ErrorLog)
}

// CallLog contains per-call information for logging.
type CallLog struct {
	Provider  string
	Model     string
	Line      int // Source line number of the call record
	TokensIn  int
	TokensOut int
	Cost      float64
}

// SummaryLog contains run-level aggregate information.
type SummaryLog struct {
	Source    string
	Requests  int
	Failures  int
	TokensIn  int
	TokensOut int
	Cost      float64
	Duration  time.Duration
}

// ErrorLog contains failure information for a single call record.
type ErrorLog struct {
	Provider string
	Line     int
	Err      error
}

// Level defines the logging verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// Format defines the output format for logs.
type Format int

const (
	FormatHuman Format = iota
	FormatJSON
)

// ParseLevel maps a config string to a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat maps a config string to a Format. Unknown values mean human.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatHuman
}

// DefaultLogger writes logs in structured format via the standard logger.
type DefaultLogger struct {
	level  Level
	format Format
}

// NewDefaultLogger creates a logger with the specified level and format.
func NewDefaultLogger(level Level, format Format) *DefaultLogger {
	return &DefaultLogger{level: level, format: format}
}

// LogCall logs one parsed call at debug level.
func (l *DefaultLogger) LogCall(ctx context.Context, call CallLog) {
	if l.level > LevelDebug {
		return
	}

	if l.format == FormatJSON {
		log.Printf(`{"level":"debug","type":"call","provider":"%s","model":"%s","line":%d,"tokens_in":%d,"tokens_out":%d,"cost":%.6f}`,
			call.Provider, call.Model, call.Line, call.TokensIn, call.TokensOut, call.Cost)
	} else {
		log.Printf("[DEBUG] %s/%s: line %d parsed (tokens=%d/%d, cost=$%.4f)",
			call.Provider, call.Model, call.Line, call.TokensIn, call.TokensOut, call.Cost)
	}
}

// LogSummary logs the aggregate run result at info level.
func (l *DefaultLogger) LogSummary(ctx context.Context, summary SummaryLog) {
	if l.level > LevelInfo {
		return
	}

	if l.format == FormatJSON {
		log.Printf(`{"level":"info","type":"summary","source":"%s","requests":%d,"failures":%d,"tokens_in":%d,"tokens_out":%d,"cost":%.6f,"duration_ms":%d}`,
			summary.Source, summary.Requests, summary.Failures,
			summary.TokensIn, summary.TokensOut, summary.Cost,
			summary.Duration.Milliseconds())
	} else {
		log.Printf("[INFO] %s: %d calls metered, %d failed (tokens=%d/%d, cost=$%.4f, duration=%.1fs)",
			summary.Source, summary.Requests, summary.Failures,
			summary.TokensIn, summary.TokensOut, summary.Cost,
			summary.Duration.Seconds())
	}
}

// LogError logs a per-call failure.
func (l *DefaultLogger) LogError(ctx context.Context, errLog ErrorLog) {
	if l.level > LevelError {
		return
	}

	if l.format == FormatJSON {
		log.Printf(`{"level":"error","type":"error","provider":"%s","line":%d,"error":"%s"}`,
			errLog.Provider, errLog.Line, errLog.Err)
	} else {
		log.Printf("[ERROR] %s: line %d failed: %v", errLog.Provider, errLog.Line, errLog.Err)
	}
}

// NopLogger discards all log events. Useful in tests.
type NopLogger struct{}

func (NopLogger) LogCall(ctx context.Context, call CallLog)          {}
func (NopLogger) LogSummary(ctx context.Context, summary SummaryLog) {}
func (NopLogger) LogError(ctx context.Context, err ErrorLog)         {}
