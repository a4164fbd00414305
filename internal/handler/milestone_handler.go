package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"renomarket/internal/model"
	"renomarket/internal/service/milestone"
)

type MilestoneHandler struct {
	svc    *milestone.Service
	logger *zap.Logger
}

func NewMilestoneHandler(svc *milestone.Service, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{svc: svc, logger: logger}
}

type createMilestoneRequest struct {
	Title             string  `json:"title" binding:"required"`
	Description       *string `json:"description"`
	DueDate           string  `json:"due_date" binding:"required"`
	PaymentPercentage float64 `json:"payment_percentage" binding:"required"`
}

func (h *MilestoneHandler) Create(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req createMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date, expected YYYY-MM-DD"})
		return
	}

	m, err := h.svc.Create(c.Request.Context(), callerID(c), milestone.CreateInput{
		ProjectID:         projectID,
		Title:             req.Title,
		Description:       req.Description,
		DueDate:           dueDate,
		PaymentPercentage: req.PaymentPercentage,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"milestone": m})
}

func (h *MilestoneHandler) ListForProject(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	milestones, err := h.svc.ListForProject(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

type updateMilestoneRequest struct {
	Title             *string  `json:"title"`
	Description       *string  `json:"description"`
	DueDate           *string  `json:"due_date"`
	PaymentPercentage *float64 `json:"payment_percentage"`
}

func (h *MilestoneHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestone id"})
		return
	}

	var req updateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u := model.MilestoneUpdate{
		Title:             req.Title,
		Description:       req.Description,
		PaymentPercentage: req.PaymentPercentage,
	}
	if req.DueDate != nil {
		d, err := parseDate(*req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date, expected YYYY-MM-DD"})
			return
		}
		u.DueDate = &d
	}

	if err := h.svc.Update(c.Request.Context(), callerID(c), id, u); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *MilestoneHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestone id"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), callerID(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type setMilestoneStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *MilestoneHandler) SetStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestone id"})
		return
	}

	var req setMilestoneStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.SetStatus(c.Request.Context(), callerID(c), id, req.Status); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
