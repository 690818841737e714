package controllers

import (
	"net/http"

	"elms-backend/models"
	"elms-backend/services"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateUnitInput struct {
	PropertyID    uuid.UUID         `json:"propertyId" binding:"required"`
	UnitNumber    string            `json:"unitNumber" binding:"required,max=50"`
	Floor         *int              `json:"floor"`
	Bedrooms      int               `json:"bedrooms" binding:"min=0"`
	Bathrooms     int               `json:"bathrooms" binding:"min=0"`
	SizeSqft      *decimal.Decimal  `json:"sizeSqft"`
	RentAmount    *decimal.Decimal  `json:"rentAmount" binding:"required"`
	DepositAmount *decimal.Decimal  `json:"depositAmount"`
	Status        models.UnitStatus `json:"status" binding:"omitempty,oneof=VACANT OCCUPIED MAINTENANCE"`
	Description   string            `json:"description"`
	ImageKey      string            `json:"imageKey"`
}

// UpdateUnitInput defines the expected JSON structure for updating a unit
type UpdateUnitInput struct {
	PropertyID    *uuid.UUID         `json:"propertyId"`
	UnitNumber    *string            `json:"unitNumber" binding:"omitempty,max=50"`
	Floor         *int               `json:"floor"`
	Bedrooms      *int               `json:"bedrooms" binding:"omitempty,min=0"`
	Bathrooms     *int               `json:"bathrooms" binding:"omitempty,min=0"`
	SizeSqft      *decimal.Decimal   `json:"sizeSqft"`
	RentAmount    *decimal.Decimal   `json:"rentAmount"`
	DepositAmount *decimal.Decimal   `json:"depositAmount"`
	Status        *models.UnitStatus `json:"status" binding:"omitempty,oneof=VACANT OCCUPIED MAINTENANCE"`
	Description   *string            `json:"description"`
	ImageKey      *string            `json:"imageKey"`
}

func CreateUnit(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var input CreateUnitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	unit, err := svc.Portfolio.CreateUnit(c.Request.Context(), user, services.UnitInput{
		PropertyID:    input.PropertyID,
		UnitNumber:    input.UnitNumber,
		Floor:         input.Floor,
		Bedrooms:      input.Bedrooms,
		Bathrooms:     input.Bathrooms,
		SizeSqft:      input.SizeSqft,
		RentAmount:    *input.RentAmount,
		DepositAmount: input.DepositAmount,
		Status:        input.Status,
		Description:   input.Description,
		ImageKey:      input.ImageKey,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Unit not found")
		return
	}
	c.JSON(http.StatusCreated, unit)
}

// GetUnits lists visible units, filtered by ?status= and ?property_id=.
func GetUnits(c *gin.Context) {
	listUnits(c, models.UnitStatus(upper(c.Query("status"))))
}

func GetVacantUnits(c *gin.Context) {
	listUnits(c, models.UnitVacant)
}

func GetOccupiedUnits(c *gin.Context) {
	listUnits(c, models.UnitOccupied)
}

func listUnits(c *gin.Context, status models.UnitStatus) {
	p, ok := policy(c)
	if !ok {
		return
	}
	propertyID, ok := queryUUID(c, "property_id")
	if !ok {
		return
	}

	units, err := svc.Portfolio.ListUnits(c.Request.Context(), p, services.UnitFilter{
		Status:     status,
		PropertyID: propertyID,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Unit not found")
		return
	}
	c.JSON(http.StatusOK, units)
}

func GetUnit(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "unit")
	if !ok {
		return
	}
	unit, err := svc.Portfolio.GetUnit(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Unit not found")
		return
	}
	c.JSON(http.StatusOK, unit)
}

func UpdateUnit(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "unit")
	if !ok {
		return
	}

	var input UpdateUnitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	unit, err := svc.Portfolio.UpdateUnit(c.Request.Context(), user, id, services.UnitChanges{
		PropertyID:    input.PropertyID,
		UnitNumber:    input.UnitNumber,
		Floor:         input.Floor,
		Bedrooms:      input.Bedrooms,
		Bathrooms:     input.Bathrooms,
		SizeSqft:      input.SizeSqft,
		RentAmount:    input.RentAmount,
		DepositAmount: input.DepositAmount,
		Status:        input.Status,
		Description:   input.Description,
		ImageKey:      input.ImageKey,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Unit not found")
		return
	}
	c.JSON(http.StatusOK, unit)
}

func DeleteUnit(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "unit")
	if !ok {
		return
	}
	if err := svc.Portfolio.DeleteUnit(c.Request.Context(), user, id); err != nil {
		utils.RespondWithServiceError(c, err, "Unit not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unit deleted successfully"})
}
