package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/internal/service"
	"github.com/Shepherdphiri/z-radio/pkg/log"
	"github.com/Shepherdphiri/z-radio/pkg/response"
)

// Handler handles HTTP requests for broadcasts.
type Handler struct {
	broadcastService service.BroadcastService
}

// NewHandler creates a new HTTP handler.
func NewHandler(broadcastService service.BroadcastService) *Handler {
	return &Handler{broadcastService: broadcastService}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		broadcasts := api.Group("/broadcasts")
		{
			broadcasts.POST("", h.CreateBroadcast)
			broadcasts.GET("", h.ListBroadcasts)
			broadcasts.GET("/:roomId", h.GetBroadcast)
			broadcasts.PATCH("/:id", h.UpdateBroadcast)
		}
		api.GET("/stats", h.GetStats)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateBroadcast registers a new broadcast.
func (h *Handler) CreateBroadcast(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create broadcast request")
		response.BindingError(c, err)
		return
	}

	b, err := h.broadcastService.CreateBroadcast(ctx, c.ClientIP(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateRoom) {
			response.Conflict(c, "room already has an active broadcast")
			return
		}
		l.Error().Err(err).Msg("failed to create broadcast")
		response.InternalError(c, "failed to create broadcast")
		return
	}

	response.Created(c, b)
}

// GetBroadcast retrieves the broadcast for a room.
func (h *Handler) GetBroadcast(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("roomId")

	b, err := h.broadcastService.GetBroadcast(ctx, roomID)
	if err != nil {
		if errors.Is(err, service.ErrBroadcastNotFound) {
			response.NotFound(c, "broadcast not found")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get broadcast")
		response.InternalError(c, "failed to get broadcast")
		return
	}

	response.Success(c, b)
}

// ListBroadcasts lists active broadcasts.
func (h *Handler) ListBroadcasts(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	list, err := h.broadcastService.ListActive(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to list broadcasts")
		response.InternalError(c, "failed to list broadcasts")
		return
	}

	response.Success(c, list)
}

// UpdateBroadcast applies a partial update.
func (h *Handler) UpdateBroadcast(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	var req domain.UpdateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind update broadcast request")
		response.BindingError(c, err)
		return
	}

	b, err := h.broadcastService.UpdateBroadcast(ctx, c.ClientIP(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUpdate):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrBroadcastNotFound):
			response.NotFound(c, "broadcast not found")
		case errors.Is(err, service.ErrDuplicateRoom):
			response.Conflict(c, "room already has an active broadcast")
		default:
			l.Error().Err(err).Str(log.FieldBroadcastID, id).Msg("failed to update broadcast")
			response.InternalError(c, "failed to update broadcast")
		}
		return
	}

	response.Success(c, b)
}

// GetStats returns the aggregate broadcast statistics.
func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	stats, err := h.broadcastService.GetStats(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to get stats")
		response.InternalError(c, "failed to get stats")
		return
	}

	response.Success(c, stats)
}
