package controllers

import (
	"net/http"

	"elms-backend/models"
	"elms-backend/services"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreatePropertyInput defines the expected JSON structure for creating a property
type CreatePropertyInput struct {
	Name         string              `json:"name" binding:"required,max=200"`
	PropertyType models.PropertyType `json:"propertyType" binding:"omitempty,oneof=APARTMENT HOUSE COMMERCIAL MIXED"`
	Address      string              `json:"address" binding:"required"`
	City         string              `json:"city" binding:"required,max=100"`
	Description  string              `json:"description"`
	ImageKey     string              `json:"imageKey"`
	OwnerID      *uuid.UUID          `json:"ownerId"` // staff only
}

// UpdatePropertyInput defines the expected JSON structure for updating a property
type UpdatePropertyInput struct {
	Name         *string              `json:"name" binding:"omitempty,max=200"`
	PropertyType *models.PropertyType `json:"propertyType" binding:"omitempty,oneof=APARTMENT HOUSE COMMERCIAL MIXED"`
	Address      *string              `json:"address"`
	City         *string              `json:"city" binding:"omitempty,max=100"`
	Description  *string              `json:"description"`
	ImageKey     *string              `json:"imageKey"`
}

func CreateProperty(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var input CreatePropertyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	property, err := svc.Portfolio.CreateProperty(c.Request.Context(), user, services.PropertyInput{
		Name:         input.Name,
		PropertyType: input.PropertyType,
		Address:      input.Address,
		City:         input.City,
		Description:  input.Description,
		ImageKey:     input.ImageKey,
		OwnerID:      input.OwnerID,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Property not found")
		return
	}
	c.JSON(http.StatusCreated, property)
}

func GetProperties(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	properties, err := svc.Portfolio.ListProperties(c.Request.Context(), p)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Property not found")
		return
	}
	c.JSON(http.StatusOK, properties)
}

// GetProperty returns the property with its units.
func GetProperty(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "property")
	if !ok {
		return
	}
	property, err := svc.Portfolio.GetProperty(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Property not found")
		return
	}
	c.JSON(http.StatusOK, property)
}

func UpdateProperty(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "property")
	if !ok {
		return
	}

	var input UpdatePropertyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	property, err := svc.Portfolio.UpdateProperty(c.Request.Context(), user, id, services.PropertyChanges{
		Name:         input.Name,
		PropertyType: input.PropertyType,
		Address:      input.Address,
		City:         input.City,
		Description:  input.Description,
		ImageKey:     input.ImageKey,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Property not found")
		return
	}
	c.JSON(http.StatusOK, property)
}

func DeleteProperty(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "property")
	if !ok {
		return
	}
	if err := svc.Portfolio.DeleteProperty(c.Request.Context(), user, id); err != nil {
		utils.RespondWithServiceError(c, err, "Property not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted successfully"})
}

func GetPropertyUnits(c *gin.Context) {
	propertyUnits(c, false)
}

func GetPropertyVacantUnits(c *gin.Context) {
	propertyUnits(c, true)
}

func propertyUnits(c *gin.Context, vacantOnly bool) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "property")
	if !ok {
		return
	}
	units, err := svc.Portfolio.PropertyUnits(c.Request.Context(), p, id, vacantOnly)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Property not found")
		return
	}
	c.JSON(http.StatusOK, units)
}

func GetPropertyStatistics(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	stats, err := svc.Portfolio.PropertyStatistics(c.Request.Context(), p)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Property not found")
		return
	}
	c.JSON(http.StatusOK, stats)
}
