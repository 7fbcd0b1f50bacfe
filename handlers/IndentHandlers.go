package handlers

import (
	"net/http"
	"time"

	"backend/models"
	"backend/utils"
	"backend/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// indentRequest is the payload for creating or editing an indent.
type indentRequest struct {
	TypeOfIndent  string    `json:"type_of_indent" binding:"required"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
	StartLocation string    `json:"start_location" binding:"required"`
	EndLocation   string    `json:"end_location" binding:"required"`
	Waypoints     []string  `json:"waypoints"`
	Reason        string    `json:"reason"`
	// Submit files the indent straight into the AS3 queue instead of DRAFT.
	// Only honoured on create.
	Submit bool `json:"submit"`
}

// indentListItem pairs an indent with the viewer's eligibility verdict so the
// interface renders buttons without re-deriving transition rules.
type indentListItem struct {
	models.Indent
	Eligibility workflow.Eligibility `json:"eligibility"`
}

// respondWorkflowError maps the engine's tagged failures onto HTTP statuses.
func respondWorkflowError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch workflow.KindOf(err) {
	case workflow.KindUnauthorized:
		status = http.StatusForbidden
	case workflow.KindInvalidTransition:
		status = http.StatusConflict
	case workflow.KindValidation:
		status = http.StatusBadRequest
	case workflow.KindNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// validateLocations rejects locations that are configured but switched off.
// Free-text locations that configuration doesn't know about stay allowed.
func validateLocations(gdb *gorm.DB, names ...string) (string, bool) {
	if gdb == nil {
		return "", true
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		var loc models.Location
		err := gdb.Where("name = ?", name).First(&loc).Error
		if err != nil {
			continue
		}
		if !loc.Active {
			return name, false
		}
	}
	return "", true
}

// CreateIndent godoc
// @Summary      Create a transport indent
// @Description  Creates an indent in DRAFT, or directly in PENDING_AS3 when submit is set
// @Tags         indents
// @Accept       json
// @Produce      json
// @Param        indent  body      indentRequest  true  "Indent details"
// @Success      201     {object}  models.Indent
// @Failure      400     {object}  models.ErrorResponse
// @Router       /api/indents [post]
func CreateIndent(engine *workflow.Engine, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		var req indentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if name, ok := validateLocations(gdb, append([]string{req.StartLocation, req.EndLocation}, req.Waypoints...)...); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "location is not active: " + name})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Create(ctx, actor, workflow.CreateIndentInput{
			TypeOfIndent:  models.IndentType(req.TypeOfIndent),
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			StartLocation: req.StartLocation,
			EndLocation:   req.EndLocation,
			Waypoints:     req.Waypoints,
			Reason:        req.Reason,
			SubmitNow:     req.Submit,
		})
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ind)
	}
}

// GetIndent godoc
// @Summary      Fetch one indent with the viewer's eligibility
// @Tags         indents
// @Produce      json
// @Param        id   path      string  true  "Indent ID"
// @Success      200  {object}  indentListItem
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/indents/{id} [get]
func GetIndent(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Get(ctx, actor, c.Param("id"))
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, indentListItem{Indent: *ind, Eligibility: workflow.Eligible(ind, actor)})
	}
}

// ListIndents godoc
// @Summary      List indents visible to the viewer
// @Tags         indents
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {array}   indentListItem
// @Router       /api/indents [get]
func ListIndents(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		indents, err := engine.List(ctx, actor, models.IndentStatus(c.Query("status")))
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		items := make([]indentListItem, 0, len(indents))
		for i := range indents {
			items = append(items, indentListItem{
				Indent:      indents[i],
				Eligibility: workflow.Eligible(&indents[i], actor),
			})
		}
		c.JSON(http.StatusOK, items)
	}
}

// UpdateIndent godoc
// @Summary      Edit an indent
// @Description  Owner edits keep the pipeline position; approver edits park the indent in PENDING_REQUESTOR until the owner acknowledges
// @Tags         indents
// @Accept       json
// @Produce      json
// @Param        id      path      string         true  "Indent ID"
// @Param        indent  body      indentRequest  true  "Updated details"
// @Success      200     {object}  models.Indent
// @Failure      409     {object}  models.ErrorResponse
// @Router       /api/indents/{id} [put]
func UpdateIndent(engine *workflow.Engine, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		var req indentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if name, ok := validateLocations(gdb, append([]string{req.StartLocation, req.EndLocation}, req.Waypoints...)...); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "location is not active: " + name})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Update(ctx, actor, c.Param("id"), workflow.UpdateIndentInput{
			TypeOfIndent:  models.IndentType(req.TypeOfIndent),
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			StartLocation: req.StartLocation,
			EndLocation:   req.EndLocation,
			Waypoints:     req.Waypoints,
			Reason:        req.Reason,
		})
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, ind)
	}
}

// DeleteDraft godoc
// @Summary      Discard a draft indent
// @Tags         indents
// @Produce      json
// @Param        id   path      string  true  "Indent ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/indents/{id} [delete]
func DeleteDraft(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		if err := engine.DeleteDraft(ctx, actor, c.Param("id")); err != nil {
			respondWorkflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "draft deleted"})
	}
}
