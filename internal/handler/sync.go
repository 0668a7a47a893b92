package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gamesync/internal/repository"
	"gamesync/internal/service"
)

// SyncHandler exposes the staging sync as a small admin surface: trigger a
// pass, inspect checkpoint state and staged row counts.
type SyncHandler struct {
	Service *service.SyncService
	Repo    repository.StagingRepository
	Logger  *zap.Logger
}

func (h *SyncHandler) Register(r *gin.Engine) {
	group := r.Group("/api/sync")
	group.POST("/run", h.run)
	group.GET("/state", h.state)
}

func (h *SyncHandler) run(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
		return
	}
	result, err := h.Service.Run(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("sync trigger failed", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SyncHandler) state(c *gin.Context) {
	states, err := h.Repo.ListStates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	counts, err := h.Repo.Counts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"states": states, "counts": counts})
}
