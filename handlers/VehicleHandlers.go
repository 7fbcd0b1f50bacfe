package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// vehicleRequest is the payload for creating/updating a vehicle record.
type vehicleRequest struct {
	VehicleNumber string `json:"vehicle_number" binding:"required"`
	VehicleType   string `json:"vehicle_type" binding:"required"`
	Capacity      int    `json:"capacity"`
	Status        string `json:"status"`
}

func parseConfigID(c *gin.Context) (int, error) {
	return strconv.Atoi(c.Param("id"))
}

// CreateVehicle godoc
// @Summary      Add a vehicle to configuration
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        vehicle  body      vehicleRequest  true  "Vehicle details"
// @Success      201      {object}  models.Vehicle
// @Failure      400      {object}  models.ErrorResponse
// @Router       /api/vehicles [post]
func CreateVehicle(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status := req.Status
		if status == "" {
			status = "active"
		}
		vehicle := models.Vehicle{
			VehicleNumber: req.VehicleNumber,
			VehicleType:   req.VehicleType,
			Capacity:      req.Capacity,
			Status:        status,
		}
		if err := gdb.Create(&vehicle).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create vehicle: " + err.Error()})
			return
		}
		c.JSON(http.StatusCreated, vehicle)
	}
}

// GetVehicles godoc
// @Summary      List configured vehicles
// @Tags         config
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {array}   models.Vehicle
// @Router       /api/vehicles [get]
func GetVehicles(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var vehicles []models.Vehicle
		q := gdb
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		if err := q.Order("id ASC").Find(&vehicles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list vehicles: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, vehicles)
	}
}

// UpdateVehicle godoc
// @Summary      Update a configured vehicle
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        id       path      int             true  "Vehicle ID"
// @Param        vehicle  body      vehicleRequest  true  "Vehicle details"
// @Success      200      {object}  models.Vehicle
// @Failure      404      {object}  models.ErrorResponse
// @Router       /api/vehicles/{id} [put]
func UpdateVehicle(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseConfigID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
			return
		}
		var req vehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var vehicle models.Vehicle
		if err := gdb.First(&vehicle, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		vehicle.VehicleNumber = req.VehicleNumber
		vehicle.VehicleType = req.VehicleType
		vehicle.Capacity = req.Capacity
		if req.Status != "" {
			vehicle.Status = req.Status
		}
		if err := gdb.Save(&vehicle).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update vehicle: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, vehicle)
	}
}

// DeleteVehicle godoc
// @Summary      Remove a configured vehicle
// @Tags         config
// @Produce      json
// @Param        id   path      int  true  "Vehicle ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/vehicles/{id} [delete]
func DeleteVehicle(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseConfigID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
			return
		}
		res := gdb.Delete(&models.Vehicle{}, id)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete vehicle: " + res.Error.Error()})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "vehicle deleted"})
	}
}
