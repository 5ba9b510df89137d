package types

import (
	"time"
)

// TaskKind identifies one of the fixed task kinds the gateway can execute.
// The set is closed: the dispatcher builds its handler table from these
// constants at startup and rejects anything else before a handler runs.
type TaskKind string

const (
	TaskCheckStatus    TaskKind = "check_status"
	TaskCheckDiskSpace TaskKind = "check_disk_space"
	TaskCheckMemory    TaskKind = "check_memory"
	TaskCheckLogs      TaskKind = "check_logs"
	TaskRunCommand     TaskKind = "run_command"
	TaskRestartService TaskKind = "restart_service"
	TaskRestartServer  TaskKind = "restart_server"
)

// AllKinds returns every registered task kind.
func AllKinds() []TaskKind {
	return []TaskKind{
		TaskCheckStatus,
		TaskCheckDiskSpace,
		TaskCheckMemory,
		TaskCheckLogs,
		TaskRunCommand,
		TaskRestartService,
		TaskRestartServer,
	}
}

// Destructive reports whether the task kind has an irreversible or
// disruptive effect and therefore requires explicit confirmation.
func (k TaskKind) Destructive() bool {
	return k == TaskRestartService || k == TaskRestartServer
}

// TaskRequest represents an inbound task invocation
type TaskRequest struct {
	Kind       TaskKind       `json:"task_kind" binding:"required"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Principal  string         `json:"-"`
	RequestID  string         `json:"-"`
}

// TaskResult is the uniform envelope every dispatch returns. Exactly one
// of Data (success) or ErrorKind (failure) is meaningful; Message is
// always set. Results are never mutated after construction.
type TaskResult struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
}

// Succeed builds a success result
func Succeed(message string, data map[string]any) TaskResult {
	return TaskResult{Success: true, Message: message, Data: data}
}

// Fail builds a failure result
func Fail(kind ErrorKind, message string) TaskResult {
	return TaskResult{Success: false, Message: message, ErrorKind: kind}
}

// ConfirmableParams is the parameter shape shared by destructive tasks.
type ConfirmableParams struct {
	Confirm      bool `json:"confirm" mapstructure:"confirm"`
	DelaySeconds int  `json:"delay_seconds" mapstructure:"delay_seconds"`
}

// ActionStatus represents the lifecycle state of a scheduled action
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionFired     ActionStatus = "fired"
	ActionCancelled ActionStatus = "cancelled"
)

// ScheduledActionInfo is the externally visible view of a scheduled action.
type ScheduledActionInfo struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    ActionStatus `json:"status"`
	FireAt    time.Time    `json:"fire_at"`
	CreatedAt time.Time    `json:"created_at"`
}
