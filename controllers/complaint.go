package controllers

import (
	"errors"
	"net/http"

	"elms-backend/models"
	"elms-backend/services"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateComplaintInput is submitted by a tenant; tenancy and unit come from the caller.
type CreateComplaintInput struct {
	Title       string                   `json:"title" binding:"required,max=200"`
	Description string                   `json:"description" binding:"required"`
	Category    models.ComplaintCategory `json:"category" binding:"omitempty,oneof=PLUMBING ELECTRICAL STRUCTURAL APPLIANCE CLEANING SECURITY OTHER"`
	Priority    models.ComplaintPriority `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
}

type UpdateComplaintInput struct {
	Title           *string                   `json:"title" binding:"omitempty,max=200"`
	Description     *string                   `json:"description"`
	Category        *models.ComplaintCategory `json:"category" binding:"omitempty,oneof=PLUMBING ELECTRICAL STRUCTURAL APPLIANCE CLEANING SECURITY OTHER"`
	Priority        *models.ComplaintPriority `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Status          *models.ComplaintStatus   `json:"status"`
	EstimatedCost   *decimal.Decimal          `json:"estimatedCost"`
	TechnicianName  *string                   `json:"technicianName" binding:"omitempty,max=200"`
	TechnicianPhone *string                   `json:"technicianPhone"`
}

type AssignComplaintInput struct {
	AssignedTo uuid.UUID `json:"assignedTo" binding:"required"`
}

type ResolveComplaintInput struct {
	ResolutionNotes string           `json:"resolutionNotes"`
	ActualCost      *decimal.Decimal `json:"actualCost"`
}

func CreateComplaint(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var input CreateComplaintInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	complaint, err := svc.Maintenance.Submit(c.Request.Context(), user, services.ComplaintInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

// GetComplaints lists visible complaints, filtered by ?status=, ?priority= and ?category=.
func GetComplaints(c *gin.Context) {
	listComplaints(c, services.ComplaintFilter{
		Status:   models.ComplaintStatus(upper(c.Query("status"))),
		Priority: models.ComplaintPriority(upper(c.Query("priority"))),
		Category: models.ComplaintCategory(upper(c.Query("category"))),
	})
}

func GetSubmittedComplaints(c *gin.Context) {
	listComplaints(c, services.ComplaintFilter{Status: models.ComplaintSubmitted})
}

func GetInProgressComplaints(c *gin.Context) {
	listComplaints(c, services.ComplaintFilter{Status: models.ComplaintInProgress})
}

func GetResolvedComplaints(c *gin.Context) {
	listComplaints(c, services.ComplaintFilter{Status: models.ComplaintResolved})
}

func GetUrgentComplaints(c *gin.Context) {
	listComplaints(c, services.ComplaintFilter{Priority: models.PriorityUrgent})
}

func listComplaints(c *gin.Context, filter services.ComplaintFilter) {
	p, ok := policy(c)
	if !ok {
		return
	}
	complaints, err := svc.Maintenance.List(c.Request.Context(), p, filter)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusOK, complaints)
}

func GetComplaint(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "complaint")
	if !ok {
		return
	}
	complaint, err := svc.Maintenance.Get(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func UpdateComplaint(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "complaint")
	if !ok {
		return
	}

	var input UpdateComplaintInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	complaint, err := svc.Maintenance.Update(c.Request.Context(), user, id, services.ComplaintChanges{
		Title:           input.Title,
		Description:     input.Description,
		Category:        input.Category,
		Priority:        input.Priority,
		Status:          input.Status,
		EstimatedCost:   input.EstimatedCost,
		TechnicianName:  input.TechnicianName,
		TechnicianPhone: input.TechnicianPhone,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func DeleteComplaint(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "complaint")
	if !ok {
		return
	}
	if err := svc.Maintenance.Delete(c.Request.Context(), user, id); err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Complaint deleted successfully"})
}

// AssignComplaint hands the complaint to a caretaker or landlord.
func AssignComplaint(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "complaint")
	if !ok {
		return
	}

	var input AssignComplaintInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	complaint, err := svc.Maintenance.Assign(c.Request.Context(), user, id, input.AssignedTo)
	if errors.Is(err, services.ErrAssigneeNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func ResolveComplaint(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "complaint")
	if !ok {
		return
	}

	var input ResolveComplaintInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBindError(c, err)
			return
		}
	}

	complaint, err := svc.Maintenance.Resolve(c.Request.Context(), user, id, input.ResolutionNotes, input.ActualCost)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func CloseComplaint(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "complaint")
	if !ok {
		return
	}
	complaint, err := svc.Maintenance.Close(c.Request.Context(), user, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func GetComplaintStatistics(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	stats, err := svc.Maintenance.Statistics(c.Request.Context(), p)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Complaint not found")
		return
	}
	c.JSON(http.StatusOK, stats)
}
