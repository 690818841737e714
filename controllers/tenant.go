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

// OnboardTenantInput creates the tenant's user account together with the tenancy.
type OnboardTenantInput struct {
	UnitID                uuid.UUID       `json:"unitId" binding:"required"`
	MoveInDate            *utils.Date     `json:"moveInDate"`
	LeaseDurationMonths   int             `json:"leaseDurationMonths" binding:"omitempty,min=1"`
	DepositPaid           decimal.Decimal `json:"depositPaid"`
	EmergencyContactName  string          `json:"emergencyContactName" binding:"max=200"`
	EmergencyContactPhone string          `json:"emergencyContactPhone"`
	Notes                 string          `json:"notes"`

	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Password  string `json:"password" binding:"omitempty,min=8"` // generated when empty
}

type UpdateTenantInput struct {
	MoveInDate            *utils.Date           `json:"moveInDate"`
	MoveOutDate           *utils.Date           `json:"moveOutDate"`
	LeaseDurationMonths   *int                  `json:"leaseDurationMonths" binding:"omitempty,min=1"`
	DepositPaid           *decimal.Decimal      `json:"depositPaid"`
	Status                *models.TenancyStatus `json:"status" binding:"omitempty,oneof=ACTIVE VACATED SUSPENDED"`
	Notes                 *string               `json:"notes"`
	EmergencyContactName  *string               `json:"emergencyContactName" binding:"omitempty,max=200"`
	EmergencyContactPhone *string               `json:"emergencyContactPhone"`
}

type VacateInput struct {
	MoveOutDate *utils.Date `json:"moveOutDate"`
}

// CreateTenant onboards a tenant onto a vacant unit.
func CreateTenant(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var input OnboardTenantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	in := services.OnboardInput{
		UnitID:                input.UnitID,
		LeaseDurationMonths:   input.LeaseDurationMonths,
		DepositPaid:           input.DepositPaid,
		EmergencyContactName:  input.EmergencyContactName,
		EmergencyContactPhone: input.EmergencyContactPhone,
		Notes:                 input.Notes,
		Username:              input.Username,
		Email:                 input.Email,
		FirstName:             input.FirstName,
		LastName:              input.LastName,
		Phone:                 input.Phone,
		Password:              input.Password,
	}
	if input.MoveInDate != nil {
		in.MoveInDate = input.MoveInDate.Time
	}

	result, err := svc.Tenancy.Onboard(c.Request.Context(), user, in)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Unit not found")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetTenants lists visible tenancies, filtered by ?status=.
func GetTenants(c *gin.Context) {
	listTenants(c, models.TenancyStatus(upper(c.Query("status"))))
}

func GetActiveTenants(c *gin.Context) {
	listTenants(c, models.TenancyActive)
}

func GetVacatedTenants(c *gin.Context) {
	listTenants(c, models.TenancyVacated)
}

func listTenants(c *gin.Context, status models.TenancyStatus) {
	p, ok := policy(c)
	if !ok {
		return
	}
	tenancies, err := svc.Tenancy.List(c.Request.Context(), p, status)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Tenant not found")
		return
	}
	c.JSON(http.StatusOK, tenancies)
}

func GetTenant(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "tenant")
	if !ok {
		return
	}
	tenancy, err := svc.Tenancy.Get(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Tenant not found")
		return
	}
	c.JSON(http.StatusOK, tenancy)
}

func UpdateTenant(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "tenant")
	if !ok {
		return
	}

	var input UpdateTenantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	tenancy, err := svc.Tenancy.Update(c.Request.Context(), user, id, services.TenancyChanges{
		MoveInDate:            input.MoveInDate.Ptr(),
		MoveOutDate:           input.MoveOutDate.Ptr(),
		LeaseDurationMonths:   input.LeaseDurationMonths,
		DepositPaid:           input.DepositPaid,
		Status:                input.Status,
		Notes:                 input.Notes,
		EmergencyContactName:  input.EmergencyContactName,
		EmergencyContactPhone: input.EmergencyContactPhone,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Tenant not found")
		return
	}
	c.JSON(http.StatusOK, tenancy)
}

func DeleteTenant(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "tenant")
	if !ok {
		return
	}
	if err := svc.Tenancy.Delete(c.Request.Context(), user, id); err != nil {
		utils.RespondWithServiceError(c, err, "Tenant not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tenant deleted successfully"})
}

// VacateTenant ends the tenancy. The body is optional; moveOutDate defaults to today.
func VacateTenant(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "tenant")
	if !ok {
		return
	}

	var input VacateInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBindError(c, err)
			return
		}
	}

	tenancy, err := svc.Tenancy.Vacate(c.Request.Context(), user, id, input.MoveOutDate.Ptr())
	if err != nil {
		utils.RespondWithServiceError(c, err, "Tenant not found")
		return
	}
	c.JSON(http.StatusOK, tenancy)
}

func GetTenantDocumentsForTenant(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "tenant")
	if !ok {
		return
	}
	docs, err := svc.Tenancy.ListDocuments(c.Request.Context(), p, &id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Tenant not found")
		return
	}
	c.JSON(http.StatusOK, docs)
}
