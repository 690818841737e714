package controllers

import (
	"net/http"

	"elms-backend/models"
	"elms-backend/services"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
)

type DashboardOverview struct {
	Properties       *services.PropertyStats  `json:"properties"`
	Invoices         *services.InvoiceStats   `json:"invoices"`
	Payments         *services.PaymentStats   `json:"payments"`
	Complaints       *services.ComplaintStats `json:"complaints"`
	RecentPayments   []models.Payment         `json:"recentPayments"`
	UrgentComplaints []models.Complaint       `json:"urgentComplaints"`
}

const dashboardListSize = 5

// GetDashboardOverview combines the caller's statistics with the latest activity.
func GetDashboardOverview(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		overview DashboardOverview
		err      error
	)
	if overview.Properties, err = svc.Portfolio.PropertyStatistics(ctx, p); err != nil {
		utils.RespondWithServiceError(c, err, "Dashboard not found")
		return
	}
	if overview.Invoices, err = svc.Billing.InvoiceStatistics(ctx, p); err != nil {
		utils.RespondWithServiceError(c, err, "Dashboard not found")
		return
	}
	if overview.Payments, err = svc.Billing.PaymentStatistics(ctx, p); err != nil {
		utils.RespondWithServiceError(c, err, "Dashboard not found")
		return
	}
	if overview.Complaints, err = svc.Maintenance.Statistics(ctx, p); err != nil {
		utils.RespondWithServiceError(c, err, "Dashboard not found")
		return
	}

	recent, err := svc.Billing.RecentPayments(ctx, p)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Dashboard not found")
		return
	}
	overview.RecentPayments = firstN(recent, dashboardListSize)

	urgent, err := svc.Maintenance.List(ctx, p, services.ComplaintFilter{Priority: models.PriorityUrgent})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Dashboard not found")
		return
	}
	open := make([]models.Complaint, 0, len(urgent))
	for _, complaint := range urgent {
		if complaint.Status == models.ComplaintSubmitted || complaint.Status == models.ComplaintInProgress {
			open = append(open, complaint)
		}
	}
	overview.UrgentComplaints = firstN(open, dashboardListSize)

	c.JSON(http.StatusOK, overview)
}

func firstN[T any](items []T, n int) []T {
	if items == nil {
		return []T{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
