package types

import "errors"

// ErrorKind classifies a task failure. Every failure a handler can
// produce maps to exactly one kind; the dispatcher never lets anything
// else escape to the caller.
type ErrorKind string

const (
	ErrKindUnknownTask          ErrorKind = "unknown_task"
	ErrKindInvalidParameters    ErrorKind = "invalid_parameters"
	ErrKindConfirmationRequired ErrorKind = "confirmation_required"
	ErrKindDelayOutOfBounds     ErrorKind = "delay_out_of_bounds"
	ErrKindCommandNotAllowed    ErrorKind = "command_not_allowed"
	ErrKindArgumentRejected     ErrorKind = "argument_rejected"
	ErrKindExecutionFailed      ErrorKind = "execution_failed"
	ErrKindExecutionTimeout     ErrorKind = "execution_timeout"
	ErrKindServiceNotFound      ErrorKind = "service_not_found"
	ErrKindPathNotFound         ErrorKind = "path_not_found"
	ErrKindLogNotFound          ErrorKind = "log_not_found"
	ErrKindLineCountOutOfBounds ErrorKind = "line_count_out_of_bounds"
	ErrKindSchedulingFailed     ErrorKind = "scheduling_failed"
	ErrKindMetricsUnavailable   ErrorKind = "metrics_unavailable"
)

var (
	ErrUnknownTask          = errors.New("unknown task kind")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrDelayOutOfBounds     = errors.New("delay out of bounds")
	ErrCommandNotAllowed    = errors.New("command not allowed")
	ErrArgumentRejected     = errors.New("argument rejected")
	ErrExecutionTimeout     = errors.New("execution timed out")
	ErrServiceNotFound      = errors.New("service not found")
	ErrPathNotFound         = errors.New("path not found")
	ErrLogNotFound          = errors.New("log not found")
	ErrLineCountOutOfBounds = errors.New("line count out of bounds")
	ErrActionNotFound       = errors.New("scheduled action not found")
	ErrInvalidDriver        = errors.New("invalid audit store driver")
)

// KindOf maps a sentinel error to its ErrorKind. Unmatched errors are
// reported as execution failures.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUnknownTask):
		return ErrKindUnknownTask
	case errors.Is(err, ErrConfirmationRequired):
		return ErrKindConfirmationRequired
	case errors.Is(err, ErrDelayOutOfBounds):
		return ErrKindDelayOutOfBounds
	case errors.Is(err, ErrCommandNotAllowed):
		return ErrKindCommandNotAllowed
	case errors.Is(err, ErrArgumentRejected):
		return ErrKindArgumentRejected
	case errors.Is(err, ErrExecutionTimeout):
		return ErrKindExecutionTimeout
	case errors.Is(err, ErrServiceNotFound):
		return ErrKindServiceNotFound
	case errors.Is(err, ErrPathNotFound):
		return ErrKindPathNotFound
	case errors.Is(err, ErrLogNotFound):
		return ErrKindLogNotFound
	case errors.Is(err, ErrLineCountOutOfBounds):
		return ErrKindLineCountOutOfBounds
	default:
		return ErrKindExecutionFailed
	}
}
