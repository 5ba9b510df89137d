package task

import (
	"fmt"

	"taskgate/internal/types"
)

// Guard enforces the confirmation contract on destructive tasks. It is
// stateless: the same parameters always produce the same answer.
type Guard struct {
	maxDelaySeconds int
}

// NewGuard creates a guard with the configured delay bound.
func NewGuard(maxDelaySeconds int) *Guard {
	return &Guard{maxDelaySeconds: maxDelaySeconds}
}

// Authorize checks the confirmation flag and delay bound for a
// destructive task kind. Non-destructive kinds pass unconditionally.
func (g *Guard) Authorize(kind types.TaskKind, params types.ConfirmableParams) error {
	if !kind.Destructive() {
		return nil
	}

	if !params.Confirm {
		return fmt.Errorf("%w: %s requires confirm=true", types.ErrConfirmationRequired, kind)
	}

	if params.DelaySeconds < 0 || params.DelaySeconds > g.maxDelaySeconds {
		return fmt.Errorf("%w: delay_seconds must be within [0, %d]",
			types.ErrDelayOutOfBounds, g.maxDelaySeconds)
	}

	return nil
}
