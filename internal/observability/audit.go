package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventGenerateStart    AuditEventType = "generate.start"
	AuditEventGenerateComplete AuditEventType = "generate.complete"
	AuditEventGenerateError    AuditEventType = "generate.error"
	AuditEventUnitPrune        AuditEventType = "unit.prune"
	AuditEventCheck            AuditEventType = "check.complete"
	AuditEventIndex            AuditEventType = "index.complete"
	AuditEventWorkflowStart    AuditEventType = "workflow.start"
	AuditEventWorkflowEnd      AuditEventType = "workflow.end"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   AuditEventType `json:"event_type"`
	SessionID   string         `json:"session_id"`
	WorkflowID  string         `json:"workflow_id,omitempty"`
	Library     string         `json:"library,omitempty"`
	Success     bool           `json:"success"`
	Duration    time.Duration  `json:"duration_ms,omitempty"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// AuditLogger appends JSON lines describing what a run changed on disk.
// A nil or disabled logger drops events.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // file path, "stdout" or "stderr"
	SessionID  string
}

func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{Enabled: true, OutputPath: "stderr"}
}

// NewAuditLogger creates an audit logger. Files are opened for append.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stderr", "":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}
	return newAuditLogger(writer, config.SessionID, config.Enabled), nil
}

// NewAuditWriter creates an enabled audit logger writing to w.
func NewAuditWriter(w io.Writer) *AuditLogger {
	return newAuditLogger(w, "", true)
}

func newAuditLogger(w io.Writer, sessionID string, enabled bool) *AuditLogger {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &AuditLogger{writer: w, sessionID: sessionID, enabled: enabled}
}

// SessionID identifies every event written by this logger.
func (l *AuditLogger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

func (l *AuditLogger) LogGenerateStart(library, input, outputDir string) {
	l.Log(&AuditEvent{
		EventType: AuditEventGenerateStart,
		Library:   library,
		Success:   true,
		Details:   map[string]any{"input": input, "output_dir": outputDir},
	})
}

func (l *AuditLogger) LogGenerateComplete(library string, d time.Duration, units, added, changed, removed, pruned int) {
	l.Log(&AuditEvent{
		EventType: AuditEventGenerateComplete,
		Library:   library,
		Success:   true,
		Duration:  d,
		Details: map[string]any{
			"units":   units,
			"added":   added,
			"changed": changed,
			"removed": removed,
			"pruned":  pruned,
		},
	})
}

func (l *AuditLogger) LogGenerateError(library string, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventGenerateError,
		Library:     library,
		Message:     fmt.Sprintf("generation of %s failed", library),
		ErrorDetail: err.Error(),
	})
}

func (l *AuditLogger) LogUnitPrune(library, path string) {
	l.Log(&AuditEvent{
		EventType: AuditEventUnitPrune,
		Library:   library,
		Success:   true,
		Details:   map[string]any{"path": path},
	})
}

func (l *AuditLogger) LogCheck(library string, mismatches int) {
	l.Log(&AuditEvent{
		EventType: AuditEventCheck,
		Library:   library,
		Success:   mismatches == 0,
		Details:   map[string]any{"mismatches": mismatches},
	})
}

func (l *AuditLogger) LogIndex(library string, symbols int) {
	l.Log(&AuditEvent{
		EventType: AuditEventIndex,
		Library:   library,
		Success:   true,
		Details:   map[string]any{"symbols": symbols},
	})
}

func (l *AuditLogger) LogWorkflowStart(workflowID string, libraries []string) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowStart,
		WorkflowID: workflowID,
		Success:    true,
		Details:    map[string]any{"libraries": libraries},
	})
}

func (l *AuditLogger) LogWorkflowEnd(workflowID string, d time.Duration, failures int) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowEnd,
		WorkflowID: workflowID,
		Success:    failures == 0,
		Duration:   d,
		Details:    map[string]any{"failures": failures},
	})
}

// Close closes the underlying file, if any.
func (l *AuditLogger) Close() error {
	if l == nil {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok && closer != os.Stdout && closer != os.Stderr {
		return closer.Close()
	}
	return nil
}

var (
	globalAuditLogger *AuditLogger
	auditOnce         sync.Once
)

// InitGlobalAuditLogger initializes the process-wide audit logger.
func InitGlobalAuditLogger(config *AuditConfig) error {
	var err error
	auditOnce.Do(func() {
		globalAuditLogger, err = NewAuditLogger(config)
	})
	return err
}

// Audit returns the process-wide audit logger, or a disabled one.
func Audit() *AuditLogger {
	if globalAuditLogger == nil {
		return &AuditLogger{enabled: false}
	}
	return globalAuditLogger
}
