package handlers

import (
	"errors"
	"net/http"

	"backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// locationRequest is the payload for creating/updating a location record.
type locationRequest struct {
	Name       string `json:"name" binding:"required"`
	Restricted bool   `json:"restricted"`
	Active     *bool  `json:"active"`
}

// CreateLocation godoc
// @Summary      Add a location to configuration
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        location  body      locationRequest  true  "Location details"
// @Success      201       {object}  models.Location
// @Failure      400       {object}  models.ErrorResponse
// @Router       /api/locations [post]
func CreateLocation(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req locationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		loc := models.Location{Name: req.Name, Restricted: req.Restricted, Active: true}
		if req.Active != nil {
			loc.Active = *req.Active
		}
		if err := gdb.Create(&loc).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create location: " + err.Error()})
			return
		}
		c.JSON(http.StatusCreated, loc)
	}
}

// GetLocations godoc
// @Summary      List configured locations
// @Tags         config
// @Produce      json
// @Param        active  query     bool  false  "Only active locations"
// @Success      200     {array}   models.Location
// @Router       /api/locations [get]
func GetLocations(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var locations []models.Location
		q := gdb
		if c.Query("active") == "true" {
			q = q.Where("active = ?", true)
		}
		if err := q.Order("name ASC").Find(&locations).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list locations: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, locations)
	}
}

// UpdateLocation godoc
// @Summary      Update a configured location
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        id        path      int              true  "Location ID"
// @Param        location  body      locationRequest  true  "Location details"
// @Success      200       {object}  models.Location
// @Failure      404       {object}  models.ErrorResponse
// @Router       /api/locations/{id} [put]
func UpdateLocation(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseConfigID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
			return
		}
		var req locationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var loc models.Location
		if err := gdb.First(&loc, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		loc.Name = req.Name
		loc.Restricted = req.Restricted
		if req.Active != nil {
			loc.Active = *req.Active
		}
		if err := gdb.Save(&loc).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update location: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, loc)
	}
}

// DeleteLocation godoc
// @Summary      Remove a configured location
// @Tags         config
// @Produce      json
// @Param        id   path      int  true  "Location ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/locations/{id} [delete]
func DeleteLocation(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseConfigID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
			return
		}
		res := gdb.Delete(&models.Location{}, id)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete location: " + res.Error.Error()})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "location deleted"})
	}
}
