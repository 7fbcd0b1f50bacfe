package handlers

import (
	"net/http"

	"backend/utils"
	"backend/workflow"

	"github.com/gin-gonic/gin"
)

type approveRequest struct {
	// TransportOperator must be supplied at the MTC stage when the indent
	// does not already carry one.
	TransportOperator string `json:"transport_operator"`
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type bulkApproveRequest struct {
	IndentIDs []string `json:"indent_ids" binding:"required,min=1"`
}

// SubmitIndent godoc
// @Summary      Submit a draft into the AS3 queue
// @Tags         approvals
// @Produce      json
// @Param        id   path      string  true  "Indent ID"
// @Success      200  {object}  models.Indent
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/indents/{id}/submit [post]
func SubmitIndent(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Submit(ctx, actor, c.Param("id"))
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, ind)
	}
}

// ApproveIndent godoc
// @Summary      Approve the indent at the caller's stage
// @Description  Advances the pipeline; the owning requestor uses this to acknowledge an approver edit
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        id        path      string          true   "Indent ID"
// @Param        approval  body      approveRequest  false  "Stage extras"
// @Success      200       {object}  models.Indent
// @Failure      400       {object}  models.ErrorResponse
// @Failure      403       {object}  models.ErrorResponse
// @Failure      409       {object}  models.ErrorResponse
// @Router       /api/indents/{id}/approve [post]
func ApproveIndent(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		var req approveRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Approve(ctx, actor, c.Param("id"), workflow.ApproveOptions{
			TransportOperator: req.TransportOperator,
		})
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, ind)
	}
}

// RejectIndent godoc
// @Summary      Reject the indent at the caller's stage
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        id      path      string         true  "Indent ID"
// @Param        reason  body      reasonRequest  true  "Rejection reason"
// @Success      200     {object}  models.Indent
// @Failure      400     {object}  models.ErrorResponse
// @Router       /api/indents/{id}/reject [post]
func RejectIndent(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		var req reasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rejection reason is required"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Reject(ctx, actor, c.Param("id"), req.Reason)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, ind)
	}
}

// CancelIndent godoc
// @Summary      Withdraw an indent
// @Description  Owner-only; legal from any non-terminal status
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        id      path      string         true  "Indent ID"
// @Param        reason  body      reasonRequest  true  "Cancellation reason"
// @Success      200     {object}  models.Indent
// @Failure      409     {object}  models.ErrorResponse
// @Router       /api/indents/{id}/cancel [post]
func CancelIndent(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		var req reasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cancellation reason is required"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Cancel(ctx, actor, c.Param("id"), req.Reason)
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, ind)
	}
}

// BulkApproveIndents godoc
// @Summary      Approve a batch of indents
// @Description  Each indent is re-validated against its current status; ineligible ones are skipped and reported, never failing the batch
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        batch  body      bulkApproveRequest  true  "Indent IDs"
// @Success      200    {object}  workflow.BulkResult
// @Failure      400    {object}  models.ErrorResponse
// @Router       /api/indents/bulk-approve [post]
func BulkApproveIndents(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		var req bulkApproveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "indent_ids is required"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		c.JSON(http.StatusOK, engine.BulkApprove(ctx, actor, req.IndentIDs))
	}
}
