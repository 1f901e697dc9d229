// Package httpapi serves cached table reads, aggregate bundles, writes and
// assistant questions over HTTP.
package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cella-health/cella/internal/aggregate"
	"github.com/cella-health/cella/internal/assistant"
	"github.com/cella-health/cella/internal/cache"
	"github.com/cella-health/cella/internal/invalidate"
	"github.com/cella-health/cella/pkg/types"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AskRequest is the body of POST /v1/users/:user/ask.
type AskRequest struct {
	Question    string `json:"question" binding:"required"`
	MessageType string `json:"messageType"`
}

// AskResponse carries the assistant reply. Fallback is set when the reply is
// the canned text used while the assistant is unreachable.
type AskResponse struct {
	Response string `json:"response"`
	Fallback bool   `json:"fallback"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string      `json:"status"`
	Cache  cache.Stats `json:"cache"`
}

// Handlers holds the dependencies of the HTTP routes.
type Handlers struct {
	query     *aggregate.Query
	mutator   *invalidate.Mutator
	assistant *assistant.Client
	logger    *zap.Logger
}

// NewHandlers returns handlers over q and m. a may be nil, in which case the
// ask route always answers with the fallback reply.
func NewHandlers(q *aggregate.Query, m *invalidate.Mutator, a *assistant.Client, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{query: q, mutator: m, assistant: a, logger: logger}
}

// HandleBundle serves GET /v1/users/:user/bundle. The table set comes from
// either ?view=<name> or ?tables=a,b,c.
func (h *Handlers) HandleBundle(c *gin.Context) {
	user, ok := h.requireUser(c)
	if !ok {
		return
	}

	var (
		tables []types.TableName
		err    error
	)
	switch view, list := c.Query("view"), c.Query("tables"); {
	case view != "" && list != "":
		h.fail(c, http.StatusBadRequest, errors.New("use either view or tables, not both"))
		return
	case view != "":
		tables, err = aggregate.View(view)
	case list != "":
		tables, err = types.ParseTableList(list)
	default:
		h.fail(c, http.StatusBadRequest, errors.New("view or tables is required"))
		return
	}
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	bundle, err := h.query.Run(c.Request.Context(), user, tables)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// HandleList serves GET /v1/tables/:table with optional ?owner= and
// ?day=YYYY-MM-DD.
func (h *Handlers) HandleList(c *gin.Context) {
	table := types.TableName(c.Param("table"))
	owner := types.OwnerFilter(c.Query("owner"))

	var (
		rows []types.Row
		err  error
	)
	if day := c.Query("day"); day != "" {
		d, perr := time.Parse(cache.DayLayout, day)
		if perr != nil {
			h.fail(c, http.StatusBadRequest, errors.New("day must be YYYY-MM-DD"))
			return
		}
		rows, err = h.query.ReadDay(c.Request.Context(), table, owner, d)
	} else {
		rows, err = h.query.Read(c.Request.Context(), table, owner)
	}
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// HandleInsert serves POST /v1/tables/:table.
func (h *Handlers) HandleInsert(c *gin.Context) {
	var row types.Row
	if err := c.ShouldBindJSON(&row); err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	stored, err := h.mutator.Insert(c.Request.Context(), types.TableName(c.Param("table")), row)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// HandleUpdate serves PATCH /v1/tables/:table/:id.
func (h *Handlers) HandleUpdate(c *gin.Context) {
	var patch types.Row
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	stored, err := h.mutator.Update(c.Request.Context(), types.TableName(c.Param("table")), c.Param("id"), patch)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

// HandleAsk serves POST /v1/users/:user/ask. The exchange is recorded in
// chat_logs; a failure to record it is logged and does not fail the request.
func (h *Handlers) HandleAsk(c *gin.Context) {
	owner, ok := h.requireUser(c)
	if !ok {
		return
	}
	user := string(owner)

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	mt, err := assistant.ParseMessageType(req.MessageType)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	resp := AskResponse{Response: assistant.Fallback(mt), Fallback: true}
	if h.assistant != nil {
		reply, err := h.assistant.Ask(c.Request.Context(), user, req.Question, mt)
		resp = AskResponse{Response: reply, Fallback: err != nil}
	}

	if _, err := h.mutator.Insert(c.Request.Context(), types.TableChatLogs, types.Row{
		"user_id":      user,
		"message_type": string(mt),
		"question":     strings.TrimSpace(req.Question),
		"response":     resp.Response,
	}); err != nil {
		h.logger.Warn("chat log not recorded", zap.String("user", user), zap.Error(err))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth serves GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Cache: h.query.Cache().Stats()})
}

func (h *Handlers) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

// statusFor maps package sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrTableNotFound), errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrUnknownColumn),
		errors.Is(err, types.ErrNoDayColumn),
		errors.Is(err, aggregate.ErrUnknownView):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrBackendDetached):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
