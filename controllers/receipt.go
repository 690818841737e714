package controllers

import (
	"net/http"

	"elms-backend/utils"

	"github.com/gin-gonic/gin"
)

// Receipts are issued by CreatePayment and are read-only here.

func GetReceipts(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	receipts, err := svc.Billing.ListReceipts(c.Request.Context(), p)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Receipt not found")
		return
	}
	c.JSON(http.StatusOK, receipts)
}

func GetReceipt(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "receipt")
	if !ok {
		return
	}
	receipt, err := svc.Billing.GetReceipt(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Receipt not found")
		return
	}
	c.JSON(http.StatusOK, receipt)
}
