package security

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditOutcome is the result recorded for a completed action.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
)

// AuditEntry is one JSON-lines record in the audit log.
type AuditEntry struct {
	Timestamp time.Time    `json:"timestamp"`
	TenantID  string       `json:"tenant_id"`
	Action    string       `json:"action"`
	Outcome   AuditOutcome `json:"outcome"`
	Detail    string       `json:"detail,omitempty"`
}

// AuditLogConfig controls the rotating JSON-lines audit sink. Out of scope
// per spec §1 ("audit log retention/rotation" is named an external
// collaborator): this is a reasonable default rotation policy, not a
// configurable retention engine with CSV/syslog backends.
type AuditLogConfig struct {
	Dir        string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

func DefaultAuditLogConfig() AuditLogConfig {
	return AuditLogConfig{Dir: "logs/audit", MaxSizeMB: 100, MaxAgeDays: 30, MaxBackups: 10}
}

// AuditLog writes AuditEntry records as JSON lines to a rotating file.
type AuditLog struct {
	logger zerolog.Logger
}

func NewAuditLog(cfg AuditLogConfig) *AuditLog {
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "audit.jsonl"),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
	}
	return &AuditLog{logger: zerolog.New(writer).With().Timestamp().Logger()}
}

// Write appends one entry. Audit writes never fail the originating request;
// a write error is itself logged and swallowed, matching the teacher's
// "log and continue" idiom for non-critical I/O.
func (a *AuditLog) Write(entry AuditEntry) {
	a.logger.Log().
		Str("tenant_id", entry.TenantID).
		Str("action", entry.Action).
		Str("outcome", string(entry.Outcome)).
		Str("detail", entry.Detail).
		Msg("audit")
}
