package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskgate/internal/types"

	"go.uber.org/zap"
)

type diskParams struct {
	Path string `json:"path"`
}

type logsParams struct {
	Log   string `json:"log" validate:"omitempty,logname"`
	Lines int    `json:"lines"`
}

type commandParams struct {
	Command string   `json:"command" validate:"required"`
	Args    []string `json:"args"`
}

type restartServiceParams struct {
	ServiceName  string `json:"service_name" validate:"required,servicename"`
	Confirm      bool   `json:"confirm"`
	DelaySeconds int    `json:"delay_seconds"`
}

func (p restartServiceParams) confirmable() types.ConfirmableParams {
	return types.ConfirmableParams{Confirm: p.Confirm, DelaySeconds: p.DelaySeconds}
}

type restartServerParams struct {
	Confirm      bool `json:"confirm"`
	DelaySeconds int  `json:"delay_seconds"`
}

func (p restartServerParams) confirmable() types.ConfirmableParams {
	return types.ConfirmableParams{Confirm: p.Confirm, DelaySeconds: p.DelaySeconds}
}

func (d *Dispatcher) handleCheckStatus(ctx context.Context, _ any) types.TaskResult {
	snap, err := d.metrics.Status()
	if err != nil {
		return types.Fail(types.ErrKindMetricsUnavailable, err.Error())
	}

	return types.Succeed("host status", map[string]any{
		"cpu_percent":    snap.CPUPercent,
		"memory_percent": snap.MemoryPercent,
		"disk_percent":   snap.DiskPercent,
		"uptime_seconds": snap.UptimeSeconds,
	})
}

func (d *Dispatcher) handleCheckDiskSpace(ctx context.Context, params any) types.TaskResult {
	p := params.(diskParams)

	snap, err := d.metrics.DiskSpace(p.Path)
	if err != nil {
		return types.Fail(types.KindOf(err), err.Error())
	}

	return types.Succeed(fmt.Sprintf("disk usage for %s", snap.Path), map[string]any{
		"path":         snap.Path,
		"total_bytes":  snap.TotalBytes,
		"free_bytes":   snap.FreeBytes,
		"used_bytes":   snap.UsedBytes,
		"used_percent": snap.UsedPercent,
	})
}

func (d *Dispatcher) handleCheckMemory(ctx context.Context, _ any) types.TaskResult {
	snap, err := d.metrics.Memory()
	if err != nil {
		return types.Fail(types.ErrKindMetricsUnavailable, err.Error())
	}

	return types.Succeed("memory usage", map[string]any{
		"total_bytes":      snap.TotalBytes,
		"available_bytes":  snap.AvailableBytes,
		"used_percent":     snap.UsedPercent,
		"swap_total_bytes": snap.SwapTotalBytes,
		"swap_used_bytes":  snap.SwapUsedBytes,
	})
}

func (d *Dispatcher) handleCheckLogs(ctx context.Context, params any) types.TaskResult {
	p := params.(logsParams)

	lines := p.Lines
	if lines == 0 {
		lines = 100
	}
	if lines < 0 || lines > d.cfg.MaxLogLines {
		return types.Fail(types.ErrKindLineCountOutOfBounds,
			fmt.Sprintf("lines must be within [1, %d]", d.cfg.MaxLogLines))
	}

	src, err := d.logSource(p.Log)
	if err != nil {
		return types.Fail(types.KindOf(err), err.Error())
	}

	content, err := tailFile(src.Path, lines)
	if err != nil {
		return types.Fail(types.KindOf(err), err.Error())
	}

	return types.Succeed(fmt.Sprintf("last %d lines of %s", lines, src.Name), map[string]any{
		"log":   src.Name,
		"lines": content,
	})
}

func (d *Dispatcher) handleRunCommand(ctx context.Context, params any) types.TaskResult {
	p := params.(commandParams)

	inv, err := d.allowlist.Resolve(p.Command, p.Args)
	if err != nil {
		return types.Fail(types.KindOf(err), err.Error())
	}

	output, code, err := d.runner.Run(ctx, inv.Path, inv.Args...)
	bounded, truncated := TruncateLines(output, inv.OutputLineLimit)
	if err != nil {
		return types.TaskResult{
			Success:   false,
			Message:   err.Error(),
			ErrorKind: types.KindOf(err),
			Data: map[string]any{
				"exit_code": code,
				"output":    bounded,
			},
		}
	}

	return types.Succeed(fmt.Sprintf("command %s completed", p.Command), map[string]any{
		"exit_code": code,
		"output":    bounded,
		"truncated": truncated,
	})
}

func (d *Dispatcher) handleRestartService(ctx context.Context, params any) types.TaskResult {
	p := params.(restartServiceParams)
	delay := time.Duration(p.DelaySeconds) * time.Second

	if p.DelaySeconds == 0 {
		return d.restartServiceNow(ctx, p.ServiceName)
	}

	info, err := d.scheduler.Schedule(
		fmt.Sprintf("restart service %s", p.ServiceName),
		delay,
		func() {
			res := d.restartServiceNow(context.Background(), p.ServiceName)
			if !res.Success {
				d.logger.Error("Scheduled service restart failed",
					zap.String("service", p.ServiceName),
					zap.String("error", res.Message))
			}
		},
	)
	if err != nil {
		return types.Fail(types.ErrKindSchedulingFailed, err.Error())
	}

	return d.scheduled(types.TaskRestartService, info,
		fmt.Sprintf("restart of %s scheduled in %s", p.ServiceName, delay))
}

func (d *Dispatcher) handleRestartServer(ctx context.Context, params any) types.TaskResult {
	p := params.(restartServerParams)
	delay := time.Duration(p.DelaySeconds) * time.Second

	cmd := d.cfg.HostRestartCommand
	info, err := d.scheduler.Schedule("restart server", delay, func() {
		if _, _, err := d.runner.Run(context.Background(), cmd[0], cmd[1:]...); err != nil {
			d.logger.Error("Host restart command failed", zap.Error(err))
		}
	})
	if err != nil {
		return types.Fail(types.ErrKindSchedulingFailed, err.Error())
	}

	return d.scheduled(types.TaskRestartServer, info,
		fmt.Sprintf("server restart scheduled in %s", delay))
}

// restartServiceNow runs the service manager synchronously.
func (d *Dispatcher) restartServiceNow(ctx context.Context, service string) types.TaskResult {
	output, code, err := d.runner.Run(ctx, d.cfg.ServiceManager, "restart", service)
	if err != nil {
		if isUnknownUnit(output, code) {
			return types.Fail(types.ErrKindServiceNotFound,
				fmt.Sprintf("service %s not found", service))
		}
		return types.Fail(types.KindOf(err), err.Error())
	}

	return types.Succeed(fmt.Sprintf("service %s restarted", service), map[string]any{
		"service": service,
	})
}

// scheduled builds the caller-facing result for a registered action and
// tells the notifier about it.
func (d *Dispatcher) scheduled(kind types.TaskKind, info types.ScheduledActionInfo, message string) types.TaskResult {
	if d.notifier != nil {
		d.notifier.ActionScheduled(kind, info)
	}

	return types.Succeed(message, map[string]any{
		"action_id": info.ID,
		"fire_at":   info.FireAt,
	})
}

func (d *Dispatcher) logSource(name string) (*logSourceRef, error) {
	if len(d.cfg.Logs) == 0 {
		return nil, fmt.Errorf("%w: no log sources configured", types.ErrLogNotFound)
	}
	if name == "" {
		src := d.cfg.Logs[0]
		return &logSourceRef{Name: src.Name, Path: src.Path}, nil
	}
	for _, src := range d.cfg.Logs {
		if src.Name == name {
			return &logSourceRef{Name: src.Name, Path: src.Path}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", types.ErrLogNotFound, name)
}

type logSourceRef struct {
	Name string
	Path string
}

// isUnknownUnit detects the service manager's "no such unit" failure.
// systemctl exits with 5 when a unit is not loaded.
func isUnknownUnit(output string, code int) bool {
	if code == 5 {
		return true
	}
	low := strings.ToLower(output)
	return strings.Contains(low, "not found") || strings.Contains(low, "could not be found")
}
