package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetOverview returns every dashboard dataset plus chat stats in one call
func (h *Handler) GetOverview(c *gin.Context) {
	overview, err := h.dashboard.Overview(c.Request.Context())
	if err != nil {
		h.logger.Error("dashboard overview failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *Handler) GetTimeline(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Timeline())
}

func (h *Handler) GetDocuments(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Documents())
}

func (h *Handler) GetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Progress())
}

func (h *Handler) GetUpdates(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Updates())
}

// GetGallery filters by ?year= and ?type= (image, video or all)
func (h *Handler) GetGallery(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items":    h.dashboard.Gallery(c.Query("year"), c.Query("type")),
		"featured": h.dashboard.Featured(),
		"years":    h.dashboard.GalleryYears(),
	})
}

func (h *Handler) GetSuggestedQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.SuggestedQuestions())
}
