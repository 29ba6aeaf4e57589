package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProductionLogger provides layered structured logging for all modules.
//
// Design:
//   - JSON format when running in Kubernetes (log aggregation), text locally
//   - Level and format overridable via GRIDMIND_LOG_LEVEL / GRIDMIND_LOG_FORMAT
//   - Error logs are rate limited to avoid flooding during failure bursts
//   - Thread-safe; child loggers share output and limiter with the parent
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	component   string
	format      string
	output      io.Writer
	mu          *sync.RWMutex

	errorLimiter *logRateLimiter
}

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "json" or "text"; empty = auto-detect
	Output string `yaml:"output" json:"output"` // "stdout" or "stderr"
}

// NewProductionLogger creates a logger for the given service.
// Configuration priority: explicit config, then environment, then
// auto-detection (JSON in Kubernetes), then defaults.
func NewProductionLogger(cfg LoggingConfig, serviceName string) *ProductionLogger {
	level := cfg.Level
	if env := os.Getenv("GRIDMIND_LOG_LEVEL"); env != "" {
		level = env
	}
	if level == "" {
		level = "INFO"
	}

	debug := os.Getenv("GRIDMIND_DEBUG") == "true" || strings.EqualFold(level, "DEBUG")

	format := cfg.Format
	if format == "" {
		format = "text"
		if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
			format = "json"
		}
	}
	if env := os.Getenv("GRIDMIND_LOG_FORMAT"); env != "" {
		format = env
	}

	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	}

	return &ProductionLogger{
		level:        strings.ToUpper(level),
		debug:        debug,
		serviceName:  serviceName,
		format:       format,
		output:       output,
		mu:           &sync.RWMutex{},
		errorLimiter: newLogRateLimiter(time.Second),
	}
}

// WithComponent returns a child logger attributed to a component.
// The child shares the parent's output, level, and error limiter.
func (l *ProductionLogger) WithComponent(component string) Logger {
	child := *l
	child.component = component
	return &child
}

// Info logs informational messages
func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

// Warn logs warning messages
func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

// Error logs error messages with rate limiting
func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	if l.errorLimiter != nil && !l.errorLimiter.allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

// Debug logs debug messages (only when debug mode is enabled)
func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, fields)
}

// SetOutput changes the output writer (useful for testing)
func (l *ProductionLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

func (l *ProductionLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.shouldLog(level) {
		return
	}

	timestamp := time.Now().Format(time.RFC3339)
	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
	} else {
		l.logText(timestamp, level, msg, fields)
	}
}

func (l *ProductionLogger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"service":   l.serviceName,
		"message":   msg,
	}
	if l.component != "" {
		entry["component"] = l.component
	}
	for k, v := range fields {
		switch k {
		case "timestamp", "level", "service", "component", "message":
			// reserved
		default:
			entry[k] = v
		}
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *ProductionLogger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	if len(fields) > 0 {
		b.WriteString(" ")
		// common fields first for readability
		for _, k := range []string{"operation", "name", "error"} {
			if v, ok := fields[k]; ok {
				fmt.Fprintf(&b, "%s=%v ", k, v)
			}
		}
		for k, v := range fields {
			if k == "operation" || k == "name" || k == "error" {
				continue
			}
			fmt.Fprintf(&b, "%s=%v ", k, v)
		}
	}

	name := l.serviceName
	if l.component != "" {
		name = l.serviceName + "/" + l.component
	}
	fmt.Fprintf(l.output, "%s [%s] [%s] %s%s\n", timestamp, level, name, msg, b.String())
}

func (l *ProductionLogger) shouldLog(level string) bool {
	levels := map[string]int{
		"DEBUG": 0,
		"INFO":  1,
		"WARN":  2,
		"ERROR": 3,
	}
	current, ok1 := levels[l.level]
	message, ok2 := levels[level]
	if !ok1 || !ok2 {
		return true
	}
	return message >= current
}

// logRateLimiter allows at most one event per interval.
type logRateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newLogRateLimiter(interval time.Duration) *logRateLimiter {
	return &logRateLimiter{interval: interval}
}

func (r *logRateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	return true
}
