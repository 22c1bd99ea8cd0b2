// Package handler provides HTTP handlers for the knowledge base service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lattice-io/doclens/internal/doclens/biz"
	"github.com/lattice-io/doclens/internal/doclens/metrics"
	"github.com/lattice-io/doclens/internal/model"
	"github.com/lattice-io/doclens/pkg/errors"
)

// queryTimeout caps retrieval plus generation for a single question.
const queryTimeout = 60 * time.Second

// KBHandler handles knowledge base HTTP requests.
type KBHandler struct {
	service biz.Service
	metrics *metrics.KBMetrics
}

// NewKBHandler creates a new KBHandler.
func NewKBHandler(service biz.Service) *KBHandler {
	return &KBHandler{
		service: service,
		metrics: metrics.GetKBMetrics(),
	}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// respondError maps a service error onto the errno registry.
func respondError(c *gin.Context, err error) {
	e := errors.FromError(err)
	c.JSON(errors.HTTPStatus(err), ErrorResponse{Code: e.Code, Message: e.Message})
}

// Ingest indexes a document supplied as raw text.
func (h *KBHandler) Ingest(c *gin.Context) {
	var req model.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errors.ErrBadRequest.Code, Message: err.Error()})
		return
	}

	result, err := h.service.IngestDocument(c.Request.Context(), req.Filename, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Code: 0, Message: "document ingested", Data: result})
}

// Query answers a question against the knowledge base.
func (h *KBHandler) Query(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: errors.ErrBadRequest.Code, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, req.Question, req.TopK, req.Document)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    errors.ErrTimeout.Code,
				Message: "Query timeout: the request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// ListDocuments lists all indexed documents.
func (h *KBHandler) ListDocuments(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: docs})
}

// DeleteDocument removes every entry of one document.
func (h *KBHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")

	result, err := h.service.DeleteDocument(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// Stats returns knowledge base statistics.
func (h *KBHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// Health reports component health.
func (h *KBHandler) Health(c *gin.Context) {
	health, err := h.service.Health(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

// Metrics exposes business metrics in Prometheus text format.
func (h *KBHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(h.metrics.Export("doclens", "kb")))
}
