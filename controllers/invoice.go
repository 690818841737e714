// controllers/invoice.go
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

// CreateInvoiceInput defines the expected JSON structure for creating an invoice.
// Totals, balance and status are derived and cannot be sent.
type CreateInvoiceInput struct {
	TenancyID               uuid.UUID        `json:"tenancyId" binding:"required"`
	Month                   *utils.Date      `json:"month" binding:"required"`
	RentAmount              *decimal.Decimal `json:"rentAmount"` // defaults to the unit's rent
	WaterBill               decimal.Decimal  `json:"waterBill"`
	ElectricityBill         decimal.Decimal  `json:"electricityBill"`
	OtherCharges            decimal.Decimal  `json:"otherCharges"`
	OtherChargesDescription string           `json:"otherChargesDescription"`
	DueDate                 *utils.Date      `json:"dueDate" binding:"required"`
	Notes                   string           `json:"notes"`
}

// UpdateInvoiceInput defines the expected JSON structure for updating an invoice
type UpdateInvoiceInput struct {
	Month                   *utils.Date           `json:"month"`
	RentAmount              *decimal.Decimal      `json:"rentAmount"`
	WaterBill               *decimal.Decimal      `json:"waterBill"`
	ElectricityBill         *decimal.Decimal      `json:"electricityBill"`
	OtherCharges            *decimal.Decimal      `json:"otherCharges"`
	OtherChargesDescription *string               `json:"otherChargesDescription"`
	DueDate                 *utils.Date           `json:"dueDate"`
	Status                  *models.InvoiceStatus `json:"status" binding:"omitempty,oneof=PENDING CANCELLED"`
	Notes                   *string               `json:"notes"`
}

// CreateInvoice issues a numbered invoice for a tenancy
func CreateInvoice(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var input CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	invoice, err := svc.Billing.CreateInvoice(c.Request.Context(), user, services.InvoiceInput{
		TenancyID:               input.TenancyID,
		Month:                   input.Month.Time,
		RentAmount:              input.RentAmount,
		WaterBill:               input.WaterBill,
		ElectricityBill:         input.ElectricityBill,
		OtherCharges:            input.OtherCharges,
		OtherChargesDescription: input.OtherChargesDescription,
		DueDate:                 input.DueDate.Time,
		Notes:                   input.Notes,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Invoice not found")
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// GetInvoices lists visible invoices, filtered by ?status=, ?tenant_id=, ?from= and ?to=.
func GetInvoices(c *gin.Context) {
	listInvoices(c, models.InvoiceStatus(upper(c.Query("status"))))
}

func GetPendingInvoices(c *gin.Context) {
	listInvoices(c, models.InvoicePending)
}

func GetOverdueInvoices(c *gin.Context) {
	listInvoices(c, models.InvoiceOverdue)
}

func GetPaidInvoices(c *gin.Context) {
	listInvoices(c, models.InvoicePaid)
}

func listInvoices(c *gin.Context, status models.InvoiceStatus) {
	p, ok := policy(c)
	if !ok {
		return
	}
	filter := services.InvoiceFilter{Status: status}
	if filter.TenancyID, ok = queryUUID(c, "tenant_id"); !ok {
		return
	}
	if filter.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = queryDate(c, "to"); !ok {
		return
	}

	invoices, err := svc.Billing.ListInvoices(c.Request.Context(), p, filter)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Invoice not found")
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// GetInvoice returns the invoice with its payments
func GetInvoice(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "invoice")
	if !ok {
		return
	}
	invoice, err := svc.Billing.GetInvoice(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Invoice not found")
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// UpdateInvoice applies a partial update and re-derives the totals
func UpdateInvoice(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "invoice")
	if !ok {
		return
	}

	var input UpdateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	invoice, err := svc.Billing.UpdateInvoice(c.Request.Context(), user, id, services.InvoiceChanges{
		Month:                   input.Month.Ptr(),
		RentAmount:              input.RentAmount,
		WaterBill:               input.WaterBill,
		ElectricityBill:         input.ElectricityBill,
		OtherCharges:            input.OtherCharges,
		OtherChargesDescription: input.OtherChargesDescription,
		DueDate:                 input.DueDate.Ptr(),
		Status:                  input.Status,
		Notes:                   input.Notes,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Invoice not found")
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice deletes an invoice. Its payments stay on record, unlinked.
func DeleteInvoice(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "invoice")
	if !ok {
		return
	}
	if err := svc.Billing.DeleteInvoice(c.Request.Context(), user, id); err != nil {
		utils.RespondWithServiceError(c, err, "Invoice not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}

func GetInvoiceStatistics(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	stats, err := svc.Billing.InvoiceStatistics(c.Request.Context(), p)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Invoice not found")
		return
	}
	c.JSON(http.StatusOK, stats)
}
