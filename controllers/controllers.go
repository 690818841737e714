// Package controllers holds the gin handlers. Handlers bind and check input, pick the
// caller's scope policy and hand over to the services.
package controllers

import (
	"net/http"
	"strings"
	"time"

	"elms-backend/models"
	"elms-backend/scope"
	"elms-backend/services"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Services are the domain services the handlers call.
type Services struct {
	Users       *services.UserService
	Portfolio   *services.PortfolioService
	Tenancy     *services.TenancyService
	Billing     *services.BillingService
	Maintenance *services.MaintenanceService
	Reminders   *services.ReminderService
}

var svc Services

// Setup installs the services used by every handler. Call it before serving requests.
func Setup(s Services) {
	svc = s
}

// principal returns the authenticated caller or writes a 401.
func principal(c *gin.Context) (*models.User, bool) {
	user, ok := utils.CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found in context")
		return nil, false
	}
	return user, true
}

// policy returns the caller's scope policy or writes a 401.
func policy(c *gin.Context) (scope.Policy, bool) {
	user, ok := principal(c)
	if !ok {
		return nil, false
	}
	return scope.For(user), true
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID reads an optional UUID query parameter. An invalid value writes a 400.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithValidationError(c, utils.NewValidationError(name, "must be a valid UUID"))
		return nil, false
	}
	return &id, true
}

// queryDate reads an optional YYYY-MM-DD query parameter. An invalid value writes a 400.
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		utils.RespondWithValidationError(c, utils.NewValidationError(name, "must be a date in YYYY-MM-DD format"))
		return nil, false
	}
	return &t, true
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
