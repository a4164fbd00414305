package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"renomarket/internal/service/request"
)

type RequestHandler struct {
	svc    *request.Service
	logger *zap.Logger
}

func NewRequestHandler(svc *request.Service, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{svc: svc, logger: logger}
}

func (h *RequestHandler) List(c *gin.Context) {
	requests, stats, err := h.svc.ListForProvider(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "stats": stats})
}

type respondRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *RequestHandler) Respond(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.Respond(c.Request.Context(), callerID(c), projectID, req.Status); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
