package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names a workflow audit event.
type AuditEventType string

const (
	AuditWorkflowStart      AuditEventType = "workflow_start"
	AuditWorkflowTransition AuditEventType = "workflow_transition"
	AuditWorkflowEnd        AuditEventType = "workflow_end"
	AuditPollAttempt        AuditEventType = "poll_attempt"
	AuditSessionWrite       AuditEventType = "session_write"
)

// AuditEvent is one JSON line in the audit log.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	RunID      string                 `json:"run,omitempty"`
	RecordID   int64                  `json:"record,omitempty"`
	From       string                 `json:"from,omitempty"`
	To         string                 `json:"to,omitempty"`
	Attempt    int                    `json:"attempt,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log. It is a no-op unless debug mode is on.
func InitAudit() error {
	dir := logDir()
	if !IsDebugMode() || dir == "" {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, fmt.Sprintf("%s_audit.jsonl", date))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditLogger scopes audit events to one workflow run.
type AuditLogger struct {
	runID string
}

// AuditRun returns an audit logger for a workflow run.
func AuditRun(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RunID == "" {
		event.RunID = a.runID
	}

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// Transition records a state change.
func (a *AuditLogger) Transition(recordID int64, from, to string, attempt int, err error) {
	ev := AuditEvent{
		EventType: AuditWorkflowTransition,
		RecordID:  recordID,
		From:      from,
		To:        to,
		Attempt:   attempt,
		Success:   err == nil,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// Poll records one status check.
func (a *AuditLogger) Poll(recordID int64, attempt int, status string, err error) {
	ev := AuditEvent{
		EventType: AuditPollAttempt,
		RecordID:  recordID,
		Attempt:   attempt,
		Success:   err == nil,
		Fields:    map[string]interface{}{"status": status},
	}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// Start records the beginning of a run.
func (a *AuditLogger) Start(mode string, recordID int64) {
	a.Log(AuditEvent{
		EventType: AuditWorkflowStart,
		RecordID:  recordID,
		Success:   true,
		Fields:    map[string]interface{}{"mode": mode},
	})
}

// End records the terminal state of a run.
func (a *AuditLogger) End(recordID int64, state string, duration time.Duration, err error) {
	ev := AuditEvent{
		EventType:  AuditWorkflowEnd,
		RecordID:   recordID,
		To:         state,
		Success:    err == nil,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// SessionWrite records a session key mutation. Values are not logged.
func (a *AuditLogger) SessionWrite(key string, removed bool) {
	a.Log(AuditEvent{
		EventType: AuditSessionWrite,
		Success:   true,
		Fields:    map[string]interface{}{"key": key, "removed": removed},
	})
}
