package http

import (
	"archive/zip"
	"errors"
	"net/http"
	"strings"

	"buyerwatch/internal/infrastructure"
	"buyerwatch/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const qrSize = 256

type AdminHandler struct {
	ask       *usecases.AskUsecase
	dashboard *usecases.DashboardUsecase
	importer  *usecases.ChatImporter
	waManager *infrastructure.WhatsAppManager
	logger    *zap.Logger
}

func NewAdminHandler(svc Services) *AdminHandler {
	logger := svc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		ask:       svc.Ask,
		dashboard: svc.Dashboard,
		importer:  svc.Importer,
		waManager: svc.WhatsApp,
		logger:    logger,
	}
}

// ImportChat replaces the stored chat with an uploaded .zip or .txt export
func (h *AdminHandler) ImportChat(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request: missing file"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer f.Close()

	batch, err := h.importer.ImportFile(c.Request.Context(), SanitizeString(fh.Filename), f)
	switch {
	case errors.Is(err, usecases.ErrUnsupportedFile), errors.Is(err, usecases.ErrEmptyExport):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, usecases.ErrExportTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case errors.Is(err, zip.ErrFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is not a valid zip archive"})
		return
	case err != nil:
		h.logger.Error("chat import failed", zap.String("file", fh.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import chat"})
		return
	}
	c.JSON(http.StatusCreated, batch)
}

func (h *AdminHandler) LoadSample(c *gin.Context) {
	batch, err := h.importer.LoadSample(c.Request.Context(), h.dashboard.SampleChat())
	if err != nil {
		h.logger.Error("sample load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sample chat"})
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// ListChats returns parsed messages, ?limit= defaults to 200
func (h *AdminHandler) ListChats(c *gin.Context) {
	limit := boundedInt(c.Query("limit"), defaultChatLimit, maxChatLimit)
	msgs, err := h.importer.Messages(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list chats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
}

func (h *AdminHandler) ClearChats(c *gin.Context) {
	if err := h.importer.Clear(c.Request.Context()); err != nil {
		h.logger.Error("clear chats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// GetSettings never echoes the credential itself
func (h *AdminHandler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()
	source, err := h.ask.CredentialSource(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
		return
	}
	cfg, err := h.ask.AnswerConfig(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
		return
	}

	strategy := usecases.StrategyKeyword
	if cfg.HasCredential() {
		strategy = usecases.StrategyRemote
	}
	c.JSON(http.StatusOK, gin.H{
		"provider":          cfg.Provider,
		"model":             cfg.Model,
		"credential_source": source,
		"strategy":          strategy,
	})
}

func (h *AdminHandler) SetAPIKey(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if !ValidAPIKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid API key"})
		return
	}
	if err := h.ask.SetAPIKey(c.Request.Context(), key); err != nil {
		h.logger.Error("store api key failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save API key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *AdminHandler) ClearAPIKey(c *gin.Context) {
	if err := h.ask.ClearAPIKey(c.Request.Context()); err != nil {
		h.logger.Error("clear api key failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear API key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// GetStats returns per-day question counts, ?days= defaults to 30
func (h *AdminHandler) GetStats(c *gin.Context) {
	days := boundedInt(c.Query("days"), defaultStatsDays, maxStatsDays)
	stats, err := h.ask.Stats(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	total := 0
	for _, s := range stats {
		total += s.Count
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "total": total, "stats": stats})
}

func (h *AdminHandler) GetWhatsAppStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.waManager.Status())
}

// GetWhatsAppQR returns the pairing code as PNG while the device is unpaired
func (h *AdminHandler) GetWhatsAppQR(c *gin.Context) {
	status := h.waManager.Status()
	if !status.Enabled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}
	if status.LoggedIn {
		c.JSON(http.StatusConflict, gin.H{"error": "Already logged in"})
		return
	}

	png, err := h.waManager.QRPNG(qrSize)
	if errors.Is(err, infrastructure.ErrNoPairingCode) {
		c.JSON(http.StatusAccepted, gin.H{"status": "QR code not yet available. Please wait..."})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
