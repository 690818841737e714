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

type CreatePaymentInput struct {
	TenancyID            uuid.UUID            `json:"tenancyId" binding:"required"`
	InvoiceID            *uuid.UUID           `json:"invoiceId"`
	Amount               *decimal.Decimal     `json:"amount" binding:"required"`
	PaymentMethod        models.PaymentMethod `json:"paymentMethod" binding:"required,oneof=CASH BANK_TRANSFER MOBILE_MONEY CHEQUE CARD"`
	PaymentDate          *utils.Date          `json:"paymentDate"`
	TransactionReference string               `json:"transactionReference" binding:"max=100"`
	Status               models.PaymentStatus `json:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED CANCELLED"`
	Notes                string               `json:"notes"`
}

// UpdatePaymentInput is a partial update. Send "invoiceId": "00000000-0000-0000-0000-000000000000" to unlink.
type UpdatePaymentInput struct {
	InvoiceID            *uuid.UUID            `json:"invoiceId"`
	Amount               *decimal.Decimal      `json:"amount"`
	PaymentMethod        *models.PaymentMethod `json:"paymentMethod" binding:"omitempty,oneof=CASH BANK_TRANSFER MOBILE_MONEY CHEQUE CARD"`
	PaymentDate          *utils.Date           `json:"paymentDate"`
	TransactionReference *string               `json:"transactionReference" binding:"omitempty,max=100"`
	Status               *models.PaymentStatus `json:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED CANCELLED"`
	Notes                *string               `json:"notes"`
}

// CreatePayment records a payment, issues its receipt and reconciles the invoice it pays.
func CreatePayment(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var input CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	in := services.PaymentInput{
		TenancyID:            input.TenancyID,
		InvoiceID:            input.InvoiceID,
		Amount:               *input.Amount,
		PaymentMethod:        input.PaymentMethod,
		TransactionReference: input.TransactionReference,
		Status:               input.Status,
		Notes:                input.Notes,
	}
	if input.PaymentDate != nil {
		in.PaymentDate = input.PaymentDate.Time
	}

	payment, err := svc.Billing.RecordPayment(c.Request.Context(), user, in)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Payment not found")
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetPayments lists visible payments, filtered by ?status=, ?tenant_id=, ?from= and ?to=.
func GetPayments(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	filter := services.PaymentFilter{Status: models.PaymentStatus(upper(c.Query("status")))}
	if filter.TenancyID, ok = queryUUID(c, "tenant_id"); !ok {
		return
	}
	if filter.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = queryDate(c, "to"); !ok {
		return
	}

	payments, err := svc.Billing.ListPayments(c.Request.Context(), p, filter)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Payment not found")
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetRecentPayments lists payments from the last 30 days.
func GetRecentPayments(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	payments, err := svc.Billing.RecentPayments(c.Request.Context(), p)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Payment not found")
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetPaymentsByTenant requires ?tenant_id=.
func GetPaymentsByTenant(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	tenancyID, ok := queryUUID(c, "tenant_id")
	if !ok {
		return
	}
	if tenancyID == nil {
		utils.RespondWithValidationError(c, utils.NewValidationError("tenant_id", "this parameter is required"))
		return
	}

	payments, err := svc.Billing.ListPayments(c.Request.Context(), p, services.PaymentFilter{TenancyID: tenancyID})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Payment not found")
		return
	}
	c.JSON(http.StatusOK, payments)
}

func GetPayment(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "payment")
	if !ok {
		return
	}
	payment, err := svc.Billing.GetPayment(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Payment not found")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func UpdatePayment(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "payment")
	if !ok {
		return
	}

	var input UpdatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	payment, err := svc.Billing.UpdatePayment(c.Request.Context(), user, id, services.PaymentChanges{
		InvoiceID:            input.InvoiceID,
		Amount:               input.Amount,
		PaymentMethod:        input.PaymentMethod,
		PaymentDate:          input.PaymentDate.Ptr(),
		TransactionReference: input.TransactionReference,
		Status:               input.Status,
		Notes:                input.Notes,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Payment not found")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func DeletePayment(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "payment")
	if !ok {
		return
	}
	if err := svc.Billing.DeletePayment(c.Request.Context(), user, id); err != nil {
		utils.RespondWithServiceError(c, err, "Payment not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted successfully"})
}

func GetPaymentStatistics(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	stats, err := svc.Billing.PaymentStatistics(c.Request.Context(), p)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Payment not found")
		return
	}
	c.JSON(http.StatusOK, stats)
}
