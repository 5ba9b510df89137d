package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"taskgate/internal/audit"
	"taskgate/internal/server/api/response"
	"taskgate/internal/types"

	"github.com/gin-gonic/gin"
)

// dispatchTask handles task dispatch requests
func (api *API) dispatchTask(c *gin.Context) {
	resp := response.New(c, api.logger)

	var req types.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(fmt.Errorf("invalid request body: %w", err))
		return
	}

	req.RequestID = c.GetString("request_id")
	req.Principal = c.GetString("principal")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	result := api.dispatcher.Dispatch(ctx, req)
	if !result.Success {
		resp.Custom(statusFor(result.ErrorKind), result)
		return
	}

	resp.Success(result)
}

// getTaskKinds lists the registered task kinds
func (api *API) getTaskKinds(c *gin.Context) {
	resp := response.New(c, api.logger)

	kinds := api.dispatcher.Kinds()
	out := make([]gin.H, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, gin.H{
			"kind":        k,
			"destructive": k.Destructive(),
		})
	}

	resp.Success(out)
}

// getScheduledActions lists outstanding scheduled actions
func (api *API) getScheduledActions(c *gin.Context) {
	resp := response.New(c, api.logger)
	resp.Success(api.scheduler.Pending())
}

// cancelScheduledAction revokes a pending action
func (api *API) cancelScheduledAction(c *gin.Context) {
	resp := response.New(c, api.logger)

	id := c.Param("id")
	if err := api.scheduler.Cancel(id); err != nil {
		if errors.Is(err, types.ErrActionNotFound) {
			resp.NotFound(fmt.Errorf("no pending action with id %s", id))
			return
		}
		resp.InternalError(err)
		return
	}

	resp.NoContent()
}

// getAuditRecords returns recent audit records, newest first.
// Optional query params: limit, kind, outcome.
func (api *API) getAuditRecords(c *gin.Context) {
	resp := response.New(c, api.logger)

	q := audit.Query{Limit: 100}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			resp.BadRequest(fmt.Errorf("invalid limit: %s", raw))
			return
		}
		q.Limit = parsed
	}
	q.Kind = types.TaskKind(c.Query("kind"))
	if raw := c.Query("outcome"); raw != "" {
		switch types.AuditOutcome(raw) {
		case types.AuditSuccess, types.AuditFailure:
			q.Outcome = types.AuditOutcome(raw)
		default:
			resp.BadRequest(fmt.Errorf("invalid outcome: %s", raw))
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, err := api.store.Recent(ctx, q)
	if err != nil {
		resp.InternalError(err)
		return
	}

	if records == nil {
		records = []types.AuditRecord{}
	}
	resp.Custom(http.StatusOK, response.Response{
		Code:      http.StatusOK,
		Message:   "success",
		Data:      records,
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now(),
	})
}
