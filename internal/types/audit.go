package types

import (
	"strings"
	"time"
)

// AuditOutcome represents the outcome recorded for a dispatch
type AuditOutcome string

const (
	AuditSuccess AuditOutcome = "success"
	AuditFailure AuditOutcome = "failure"
)

// AuditRecord captures one dispatch, regardless of outcome. Records are
// append-only and never mutated after creation.
type AuditRecord struct {
	ID        int64          `json:"id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id"`
	TaskKind  TaskKind       `json:"task_kind"`
	Params    map[string]any `json:"parameters,omitempty"`
	Outcome   AuditOutcome   `json:"outcome"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
	Message   string         `json:"message"`
	Principal string         `json:"principal,omitempty"`
}

// NewAuditRecord builds a record for a completed dispatch. Parameters
// are redacted before they are stored.
func NewAuditRecord(req TaskRequest, res TaskResult) AuditRecord {
	outcome := AuditSuccess
	if !res.Success {
		outcome = AuditFailure
	}
	return AuditRecord{
		Timestamp: time.Now().UTC(),
		RequestID: req.RequestID,
		TaskKind:  req.Kind,
		Params:    RedactParams(req.Parameters),
		Outcome:   outcome,
		ErrorKind: res.ErrorKind,
		Message:   res.Message,
		Principal: req.Principal,
	}
}

// RedactParams returns a copy of params with secret-bearing values
// replaced. The original map is left untouched.
func RedactParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if isSecretKey(k) {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range []string{"token", "secret", "password", "apikey", "api_key"} {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
