package handler

import (
	"errors"
	"net/http"

	"habit-coach/internal/middleware"
	"habit-coach/internal/model"
	"habit-coach/internal/service"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	svc *service.ProgressService
}

func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// GET /api/plan
func (h *ProgressHandler) Plan(c *gin.Context) {
	sess, err := h.svc.Session(c.Request.Context(), c.GetString(middleware.SessionKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GET /api/progress
func (h *ProgressHandler) Progress(c *gin.Context) {
	p, err := h.svc.Progress(c.Request.Context(), c.GetString(middleware.SessionKey))
	if err != nil {
		writeError(c, err)
		return
	}
	if p.Entries == nil {
		p.Entries = []model.DailyEntry{}
	}
	c.JSON(http.StatusOK, p)
}

// POST /api/progress/entries  body: {"day_index":1,"adherence":"yes","steps":9100}
func (h *ProgressHandler) CheckIn(c *gin.Context) {
	var req model.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	entry, err := h.svc.CheckIn(c.Request.Context(), c.GetString(middleware.SessionKey), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// POST /api/progress/plant
func (h *ProgressHandler) Plant(c *gin.Context) {
	p, err := h.svc.Plant(c.Request.Context(), c.GetString(middleware.SessionKey))
	if errors.Is(err, service.ErrStreakIncomplete) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "completed": p.Completed, "total": p.Total})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /api/plan
func (h *ProgressHandler) Restart(c *gin.Context) {
	if err := h.svc.Restart(c.Request.Context(), c.GetString(middleware.SessionKey)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDayOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
