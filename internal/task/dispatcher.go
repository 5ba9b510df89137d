package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"taskgate/internal/config"
	"taskgate/internal/types"
	"taskgate/internal/validator"

	"go.uber.org/zap"
)

// AuditSink receives one audit record per dispatch, success or failure.
type AuditSink interface {
	Record(ctx context.Context, rec types.AuditRecord)
}

// Notifier is told when a destructive action has been scheduled.
type Notifier interface {
	ActionScheduled(kind types.TaskKind, info types.ScheduledActionInfo)
}

// confirmable is implemented by parameter shapes of destructive tasks.
type confirmable interface {
	confirmable() types.ConfirmableParams
}

// registration binds a task kind to its parameter shape and handler.
type registration struct {
	decode func(params map[string]any) (any, error)
	handle func(ctx context.Context, params any) types.TaskResult
}

// Dispatcher maps task requests onto the fixed handler table. The
// table is built once in the constructor; unknown kinds never reach a
// handler. Safe for concurrent use.
type Dispatcher struct {
	cfg       *config.TasksConfig
	allowlist *Allowlist
	guard     *Guard
	scheduler *Scheduler
	runner    Runner
	metrics   Metrics
	validate  *validator.Validator
	audit     AuditSink
	notifier  Notifier
	logger    *zap.Logger
	handlers  map[types.TaskKind]registration
}

// NewDispatcher creates a dispatcher with the full handler table.
// audit and notifier may be nil.
func NewDispatcher(cfg *config.TasksConfig, sched *Scheduler, audit AuditSink, notifier Notifier, logger *zap.Logger) (*Dispatcher, error) {
	allowlist, err := NewAllowlist(cfg.Allowlist)
	if err != nil {
		return nil, fmt.Errorf("failed to build allowlist: %w", err)
	}

	d := &Dispatcher{
		cfg:       cfg,
		allowlist: allowlist,
		guard:     NewGuard(cfg.MaxDelaySeconds),
		scheduler: sched,
		runner:    newExecRunner(cfg.CommandTimeout),
		metrics:   newProcMetrics(cfg.DefaultMount),
		validate:  validator.New(),
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
	}

	d.handlers = map[types.TaskKind]registration{
		types.TaskCheckStatus:    {d.decodeEmpty, d.handleCheckStatus},
		types.TaskCheckDiskSpace: {decodeAs[diskParams](d), d.handleCheckDiskSpace},
		types.TaskCheckMemory:    {d.decodeEmpty, d.handleCheckMemory},
		types.TaskCheckLogs:      {decodeAs[logsParams](d), d.handleCheckLogs},
		types.TaskRunCommand:     {decodeAs[commandParams](d), d.handleRunCommand},
		types.TaskRestartService: {decodeAs[restartServiceParams](d), d.handleRestartService},
		types.TaskRestartServer:  {decodeAs[restartServerParams](d), d.handleRestartServer},
	}

	return d, nil
}

// Dispatch validates and executes one task request. It returns only
// after the handler completes or a delayed action has been registered;
// it never blocks for a restart delay. Every call emits exactly one
// audit record.
func (d *Dispatcher) Dispatch(ctx context.Context, req types.TaskRequest) types.TaskResult {
	res := d.run(ctx, req)

	if d.audit != nil {
		d.audit.Record(ctx, types.NewAuditRecord(req, res))
	}

	return res
}

func (d *Dispatcher) run(ctx context.Context, req types.TaskRequest) (res types.TaskResult) {
	// Nothing a handler does may escape the dispatch boundary.
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Task handler panicked",
				zap.String("task_kind", string(req.Kind)),
				zap.Any("panic", r))
			res = types.Fail(types.ErrKindExecutionFailed, "internal task failure")
		}
	}()

	reg, ok := d.handlers[req.Kind]
	if !ok {
		return types.Fail(types.ErrKindUnknownTask,
			fmt.Sprintf("unknown task kind: %s", req.Kind))
	}

	params, err := reg.decode(req.Parameters)
	if err != nil {
		return types.Fail(types.ErrKindInvalidParameters, err.Error())
	}

	if req.Kind.Destructive() {
		cp := params.(confirmable).confirmable()
		if err := d.guard.Authorize(req.Kind, cp); err != nil {
			// Expected and frequent; not an error condition.
			d.logger.Info("Rejected destructive task",
				zap.String("task_kind", string(req.Kind)),
				zap.String("reason", err.Error()))
			return types.Fail(types.KindOf(err), err.Error())
		}
	}

	return reg.handle(ctx, params)
}

// Kinds returns the registered task kinds.
func (d *Dispatcher) Kinds() []types.TaskKind {
	return types.AllKinds()
}

// decodeEmpty accepts tasks that take no parameters.
func (d *Dispatcher) decodeEmpty(params map[string]any) (any, error) {
	if len(params) > 0 {
		return nil, fmt.Errorf("task takes no parameters")
	}
	return nil, nil
}

// decodeAs builds a strict decoder for the given parameter shape:
// unknown keys, wrong types, and failed validation tags all reject the
// request before the handler runs.
func decodeAs[T any](d *Dispatcher) func(map[string]any) (any, error) {
	return func(params map[string]any) (any, error) {
		var out T
		if params != nil {
			data, err := json.Marshal(params)
			if err != nil {
				return nil, fmt.Errorf("unencodable parameters: %w", err)
			}
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&out); err != nil {
				return nil, fmt.Errorf("invalid parameters: %w", err)
			}
		}
		if err := d.validate.Struct(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
