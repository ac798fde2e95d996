package mockserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const appName = "AgentSmith Chatbot API"

// Handler serves the AgentSmith HTTP contract. Errors are returned as
// {"detail": ...} bodies.
type Handler struct {
	Service  *Service
	Gatherer prometheus.Gatherer
}

func NewHandler(s *Service, gatherer prometheus.Gatherer) *Handler {
	return &Handler{Service: s, Gatherer: gatherer}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.POST("/chat", h.chat)

	docs := r.Group("/documents")
	{
		docs.POST("/upload", h.uploadDocument)
		docs.GET("", h.listDocuments)
		docs.DELETE("", h.clearDocuments)
	}
	// Older backends exposed the upload here.
	r.POST("/upload-pdf", h.uploadDocument)

	if h.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": appName, "status": "online"})
}

func (h *Handler) health(c *gin.Context) {
	info := h.Service.DocumentInfo()
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:           "healthy",
		OpenAIConfigured: h.Service.Cfg.OpenAIConfigured,
		APIBase:          h.Service.Cfg.APIBase,
		DocumentsLoaded:  info.TotalChunks,
	})
}

func (h *Handler) chat(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "body", err.Error())
		return
	}

	resp, err := h.Service.Chat(c.Request.Context(), req)
	if err != nil {
		status, detail := classifyChatError(err)
		h.Service.Logger.Error("Error generating reply", "error", err, "status", status)
		c.JSON(status, gin.H{"detail": detail})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		validationError(c, "file", "field required")
		return
	}
	if !strings.HasSuffix(header.Filename, ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Only PDF files are allowed"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Error processing PDF: %v", err)})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Error processing PDF: %v", err)})
		return
	}

	pages, chunks, err := h.Service.ProcessDocument(header.Filename, data)
	if err != nil {
		h.Service.Logger.Error("Error processing PDF", "filename", header.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Error processing PDF: %v", err)})
		return
	}

	c.JSON(http.StatusOK, api.UploadResponse{
		Filename: header.Filename,
		Pages:    pages,
		Chunks:   chunks,
		Message:  fmt.Sprintf("Successfully processed %s", header.Filename),
	})
}

func (h *Handler) listDocuments(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.DocumentInfo())
}

func (h *Handler) clearDocuments(c *gin.Context) {
	h.Service.ClearDocuments()
	c.JSON(http.StatusOK, gin.H{"message": "All documents cleared"})
}

// validationError mirrors the list-shaped detail of request validation failures.
func validationError(c *gin.Context, field, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"detail": []gin.H{{
			"loc":  []string{"body", field},
			"msg":  msg,
			"type": "value_error",
		}},
	})
}

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limit reached")
)

func classifyChatError(err error) (int, string) {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, ErrAuthentication) || strings.Contains(msg, "authentication"):
		return http.StatusUnauthorized, "Invalid API key"
	case errors.Is(err, ErrRateLimited) || strings.Contains(msg, "rate"):
		return http.StatusTooManyRequests, "Rate limit exceeded"
	}
	return http.StatusInternalServerError, err.Error()
}
