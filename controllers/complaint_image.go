package controllers

import (
	"net/http"

	"elms-backend/services"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateComplaintImageInput struct {
	ComplaintID uuid.UUID `json:"complaintId" binding:"required"`
	ImageKey    string    `json:"imageKey" binding:"required"`
	Description string    `json:"description" binding:"max=200"`
}

func CreateComplaintImage(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var input CreateComplaintImageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	image, err := svc.Maintenance.AddImage(c.Request.Context(), user, services.ImageInput{
		ComplaintID: input.ComplaintID,
		ImageKey:    input.ImageKey,
		Description: input.Description,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Image not found")
		return
	}
	c.JSON(http.StatusCreated, image)
}

// GetComplaintImages lists visible images, optionally for one ?complaint_id=.
func GetComplaintImages(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	complaintID, ok := queryUUID(c, "complaint_id")
	if !ok {
		return
	}
	images, err := svc.Maintenance.ListImages(c.Request.Context(), p, complaintID)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Image not found")
		return
	}
	c.JSON(http.StatusOK, images)
}

func DeleteComplaintImage(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "image")
	if !ok {
		return
	}
	if err := svc.Maintenance.DeleteImage(c.Request.Context(), user, id); err != nil {
		utils.RespondWithServiceError(c, err, "Image not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}
