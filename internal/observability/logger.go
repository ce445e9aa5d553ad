package observability

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"

	"github.com/georgisalene/gnss-rt/internal/ports"
)

// Logger implements ports.Logger with JSON lines on stdout.
type Logger struct {
	fields map[string]interface{}
	logger *log.Logger
}

// NewLogger creates a new stdout logger
func NewLogger() ports.Logger {
	return NewLoggerWithOutput(os.Stdout)
}

// NewLoggerWithOutput creates a logger writing to the given sink. Tests use
// this to capture output.
func NewLoggerWithOutput(w io.Writer) ports.Logger {
	return &Logger{
		fields: make(map[string]interface{}),
		logger: log.New(w, "", 0),
	}
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log("INFO", msg, fields...)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log("ERROR", msg, fields...)
}

// WithFields returns a new Logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &Logger{
		fields: newFields,
		logger: l.logger,
	}
}

func (l *Logger) log(level string, msg string, fields ...interface{}) {
	entry := make(map[string]interface{}, len(l.fields)+len(fields)/2+3)

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["message"] = msg

	for k, v := range l.fields {
		entry[k] = v
	}

	// Parse variadic fields (key1, value1, key2, value2, ...)
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, ok := fields[i+1].(error); ok && err != nil {
			entry[key] = err.Error()
			continue
		}
		entry[key] = fields[i+1]
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("failed to marshal log entry: %v", err)
		return
	}
	l.logger.Println(string(jsonBytes))
}
