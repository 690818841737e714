package controllers

import (
	"net/http"

	"elms-backend/models"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetUsers lists the users visible to the caller, optionally filtered by ?role=.
func GetUsers(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}

	users, err := svc.Users.List(c.Request.Context(), p, models.Role(upper(c.Query("role"))))
	if err != nil {
		utils.RespondWithServiceError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, users)
}

func GetUser(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "user")
	if !ok {
		return
	}

	user, err := svc.Users.Get(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}
