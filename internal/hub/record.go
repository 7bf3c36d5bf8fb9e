package hub

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Level is the numeric severity carried in log_level.
type Level int

const (
	LevelTrace Level = 100
	LevelDebug Level = 200
	LevelInfo  Level = 300
	LevelWarn  Level = 400
	LevelError Level = 500
	LevelFatal Level = 600
	LevelPrint Level = 1000
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelPrint:
		return "PRINT"
	default:
		return "LEVEL(" + strconv.Itoa(int(l)) + ")"
	}
}

// Known reports whether l is one of the defined levels.
func (l Level) Known() bool {
	switch l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal, LevelPrint:
		return true
	}
	return false
}

// LogRecord is one streamed log event.
type LogRecord struct {
	Timestamp  string `json:"timestamp"`
	DriverID   string `json:"driver_id"`
	DriverName string `json:"driver_name"`
	Level      Level  `json:"log_level"`
	Message    string `json:"message"`
}

const logRecordSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["timestamp", "driver_id", "driver_name", "log_level", "message"],
	"properties": {
		"timestamp":   {"type": "string"},
		"driver_id":   {"type": "string"},
		"driver_name": {"type": "string"},
		"log_level":   {"type": "integer"},
		"message":     {"type": "string"}
	}
}`

var compiledLogRecordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("log-record.json", logRecordSchema)
})

// ParseLogRecord decodes an event payload. Payloads that are not JSON objects
// carrying all five fields are MalformedEvent faults.
func ParseLogRecord(data []byte) (LogRecord, error) {
	schema, err := compiledLogRecordSchema()
	if err != nil {
		return LogRecord{}, fmt.Errorf("compile log record schema: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogRecord{}, NewFault(FaultMalformedEvent, "", fmt.Errorf("decode payload: %w", err))
	}
	if err := schema.Validate(raw); err != nil {
		return LogRecord{}, NewFault(FaultMalformedEvent, "", err)
	}

	var rec LogRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return LogRecord{}, NewFault(FaultMalformedEvent, "", err)
	}
	return rec, nil
}
