// controllers/auth.go
package controllers

import (
	"net/http"

	"elms-backend/scope"

	"github.com/gin-gonic/gin"
)

// Me returns the authenticated principal with its active tenancy, if any.
func Me(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	response := gin.H{
		"user":   user,
		"policy": scope.For(user).Name(),
	}
	if user.IsTenant() {
		if tenancy, err := svc.Tenancy.CurrentTenancy(c.Request.Context(), user.ID); err == nil {
			response["tenancyId"] = tenancy.ID
			response["unitId"] = tenancy.UnitID
		}
	}

	c.JSON(http.StatusOK, response)
}
