package task

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"taskgate/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransitionHook is invoked after an action fires or is cancelled.
type TransitionHook func(info types.ScheduledActionInfo)

type scheduledAction struct {
	info  types.ScheduledActionInfo
	timer *time.Timer
	fn    func()
}

// Scheduler executes side-effecting actions after a delay without
// blocking the caller. Pending actions live only in memory: if the
// process exits before the delay elapses, the action is lost. That is
// an accepted limitation, not a bug.
type Scheduler struct {
	mu      sync.Mutex
	actions map[string]*scheduledAction
	hook    TransitionHook
	stopped bool
	logger  *zap.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		actions: make(map[string]*scheduledAction),
		logger:  logger,
	}
}

// SetTransitionHook registers a hook called when an action fires or is
// cancelled. Must be set before the first Schedule call.
func (s *Scheduler) SetTransitionHook(hook TransitionHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Schedule registers fn to run once after delay and returns immediately
// with the action's info. A zero delay fires asynchronously right away.
func (s *Scheduler) Schedule(name string, delay time.Duration, fn func()) (types.ScheduledActionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return types.ScheduledActionInfo{}, fmt.Errorf("scheduler is stopped")
	}

	id := uuid.New().String()
	action := &scheduledAction{
		info: types.ScheduledActionInfo{
			ID:        id,
			Name:      name,
			Status:    types.ActionPending,
			FireAt:    time.Now().Add(delay),
			CreatedAt: time.Now(),
		},
		fn: fn,
	}
	action.timer = time.AfterFunc(delay, func() { s.fire(id) })
	s.actions[id] = action

	s.logger.Info("Scheduled action",
		zap.String("id", id),
		zap.String("name", name),
		zap.Duration("delay", delay))

	return action.info, nil
}

// fire runs the action exactly once. It wins any race with Cancel once
// the timer has elapsed.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	action, ok := s.actions[id]
	if !ok || action.info.Status != types.ActionPending {
		s.mu.Unlock()
		return
	}
	action.info.Status = types.ActionFired
	delete(s.actions, id)
	hook := s.hook
	s.mu.Unlock()

	s.logger.Info("Firing scheduled action",
		zap.String("id", id),
		zap.String("name", action.info.Name))

	action.fn()

	if hook != nil {
		hook(action.info)
	}
}

// Cancel transitions a pending action to cancelled. Cancelling an
// action that has already fired (or never existed) returns an error.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	action, ok := s.actions[id]
	if !ok || action.info.Status != types.ActionPending {
		s.mu.Unlock()
		return types.ErrActionNotFound
	}
	action.info.Status = types.ActionCancelled
	action.timer.Stop()
	delete(s.actions, id)
	hook := s.hook
	s.mu.Unlock()

	s.logger.Info("Cancelled scheduled action",
		zap.String("id", id),
		zap.String("name", action.info.Name))

	if hook != nil {
		hook(action.info)
	}
	return nil
}

// Pending returns the outstanding actions, oldest first.
func (s *Scheduler) Pending() []types.ScheduledActionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.ScheduledActionInfo, 0, len(s.actions))
	for _, a := range s.actions {
		out = append(out, a.info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// PendingCount returns the number of outstanding actions.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Stop cancels every pending action and refuses further scheduling.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, action := range s.actions {
		action.timer.Stop()
		action.info.Status = types.ActionCancelled
		delete(s.actions, id)
		s.logger.Info("Dropped pending action on shutdown",
			zap.String("id", id),
			zap.String("name", action.info.Name))
	}
}
