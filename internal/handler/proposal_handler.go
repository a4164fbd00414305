package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"renomarket/internal/service/proposal"
)

type ProposalHandler struct {
	svc    *proposal.Service
	logger *zap.Logger
}

func NewProposalHandler(svc *proposal.Service, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{svc: svc, logger: logger}
}

type submitProposalRequest struct {
	ProjectID      int     `json:"project_id" binding:"required"`
	QuoteAmount    float64 `json:"quote_amount" binding:"required"`
	StartDate      string  `json:"start_date" binding:"required"`
	Comments       string  `json:"comments"`
	PortfolioItems []int64 `json:"portfolio_items"`
}

func (h *ProposalHandler) Submit(c *gin.Context) {
	var req submitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
		return
	}

	caller := callerID(c)
	h.logger.Info("Submit proposal request received",
		zap.Int("project_id", req.ProjectID),
		zap.Int("provider_id", caller),
		zap.Float64("quote_amount", req.QuoteAmount),
	)

	p, err := h.svc.Submit(c.Request.Context(), caller, proposal.SubmitInput{
		ProjectID:      req.ProjectID,
		ProviderID:     caller,
		QuoteAmount:    req.QuoteAmount,
		StartDate:      startDate,
		Comments:       req.Comments,
		PortfolioItems: req.PortfolioItems,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proposal": p})
}

type acceptProposalRequest struct {
	ProjectID int `json:"project_id" binding:"required"`
}

func (h *ProposalHandler) Accept(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	var req acceptProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.Accept(c.Request.Context(), callerID(c), id, req.ProjectID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (h *ProposalHandler) Reject(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	if err := h.svc.Reject(c.Request.Context(), callerID(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (h *ProposalHandler) ListForProject(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	sortField := c.DefaultQuery("sort", "created_at")
	descending := c.DefaultQuery("order", "asc") == "desc"

	proposals, err := h.svc.ListForProject(c.Request.Context(), projectID, sortField, descending)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

func (h *ProposalHandler) ListMine(c *gin.Context) {
	proposals, err := h.svc.ListMine(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}
