package http

import (
	"errors"
	"net/http"
	"strings"

	"buyerwatch/internal/infrastructure"
	"buyerwatch/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxUploadBytes = 32 << 20

// Services groups everything the HTTP layer calls into
type Services struct {
	Ask       *usecases.AskUsecase
	Auth      *usecases.AuthUsecase
	Dashboard *usecases.DashboardUsecase
	Importer  *usecases.ChatImporter
	WhatsApp  *infrastructure.WhatsAppManager
	Logger    *zap.Logger
}

type Handler struct {
	ask       *usecases.AskUsecase
	auth      *usecases.AuthUsecase
	dashboard *usecases.DashboardUsecase
	logger    *zap.Logger
}

func NewHandler(svc Services) *Handler {
	logger := svc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		ask:       svc.Ask,
		auth:      svc.Auth,
		dashboard: svc.Dashboard,
		logger:    logger,
	}
}

// SetupRoutes registers the public dashboard, ask and admin routes
func SetupRoutes(r *gin.Engine, svc Services, middleware *Middleware, askLimit rate.Limit, askBurst int) {
	h := NewHandler(svc)
	adminHandler := NewAdminHandler(svc)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(maxUploadBytes))
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/dashboard", h.GetOverview)
		api.GET("/timeline", h.GetTimeline)
		api.GET("/documents", h.GetDocuments)
		api.GET("/progress", h.GetProgress)
		api.GET("/updates", h.GetUpdates)
		api.GET("/gallery", h.GetGallery)
		api.GET("/questions/suggested", h.GetSuggestedQuestions)

		api.POST("/ask", middleware.RateLimitPerClient(askLimit, askBurst), h.Ask)
		api.POST("/auth/login", h.Login)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/chats/import", adminHandler.ImportChat)
		admin.POST("/chats/sample", adminHandler.LoadSample)
		admin.GET("/chats", adminHandler.ListChats)
		admin.DELETE("/chats", adminHandler.ClearChats)

		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings/api-key", adminHandler.SetAPIKey)
		admin.DELETE("/settings/api-key", adminHandler.ClearAPIKey)

		admin.GET("/stats", adminHandler.GetStats)

		admin.GET("/whatsapp/status", adminHandler.GetWhatsAppStatus)
		admin.GET("/whatsapp/qr", adminHandler.GetWhatsAppQR)
	}
}

func (h *Handler) Ask(c *gin.Context) {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	question := strings.TrimSpace(SanitizeString(req.Question))
	if !ValidateLength(question, 0, MaxQuestionLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question too long"})
		return
	}

	ans, err := h.ask.Ask(c.Request.Context(), question)
	if err != nil {
		if errors.Is(err, usecases.ErrEmptyQuestion) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a question"})
			return
		}
		h.logger.Error("ask failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to answer question"})
		return
	}
	c.JSON(http.StatusOK, ans)
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidateLength(req.Username, 1, MaxUsernameLength) || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, usecases.ErrInvalidCredentials) {
			h.logger.Error("login failed", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
