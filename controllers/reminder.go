// controllers/reminder.go
package controllers

import (
	"net/http"
	"strconv"

	"elms-backend/config"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requireStaff writes a 403 unless the caller is staff or an administrator.
func requireStaff(c *gin.Context) bool {
	user, ok := principal(c)
	if !ok {
		return false
	}
	if !user.IsAdministrator() {
		utils.RespondWithError(c, http.StatusForbidden, "Only staff can manage reminders")
		return false
	}
	return true
}

// RunOverdueSweep marks past-due invoices OVERDUE and texts the tenants now,
// outside the cron schedule.
func RunOverdueSweep(c *gin.Context) {
	if !requireStaff(c) {
		return
	}

	flipped, err := svc.Reminders.RunOverdueSweep(c.Request.Context())
	if err != nil {
		config.Logger.Error("manual overdue sweep failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to run overdue sweep")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Overdue sweep completed", "invoices": flipped})
}

// GetReminderLogs lists the latest reminder attempts. ?limit= defaults to 50.
func GetReminderLogs(c *gin.Context) {
	if !requireStaff(c) {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondWithValidationError(c, utils.NewValidationError("limit", "must be a positive number"))
			return
		}
		limit = n
	}

	logs, err := svc.Reminders.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Reminder log not found")
		return
	}
	c.JSON(http.StatusOK, logs)
}
