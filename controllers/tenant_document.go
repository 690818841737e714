package controllers

import (
	"net/http"

	"elms-backend/models"
	"elms-backend/services"
	"elms-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateTenantDocumentInput records a file already uploaded to the bucket under fileKey.
type CreateTenantDocumentInput struct {
	TenancyID    uuid.UUID           `json:"tenancyId" binding:"required"`
	DocumentType models.DocumentType `json:"documentType" binding:"required,oneof=ID PASSPORT CONTRACT OTHER"`
	FileKey      string              `json:"fileKey" binding:"required"`
	Description  string              `json:"description" binding:"max=200"`
}

func CreateTenantDocument(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var input CreateTenantDocumentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	doc, err := svc.Tenancy.AddDocument(c.Request.Context(), user, services.DocumentInput{
		TenancyID:    input.TenancyID,
		DocumentType: input.DocumentType,
		FileKey:      input.FileKey,
		Description:  input.Description,
	})
	if err != nil {
		utils.RespondWithServiceError(c, err, "Document not found")
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// GetTenantDocuments lists visible documents, optionally for one ?tenant_id=.
func GetTenantDocuments(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	tenancyID, ok := queryUUID(c, "tenant_id")
	if !ok {
		return
	}
	docs, err := svc.Tenancy.ListDocuments(c.Request.Context(), p, tenancyID)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Tenant not found")
		return
	}
	c.JSON(http.StatusOK, docs)
}

func GetTenantDocument(c *gin.Context) {
	p, ok := policy(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "document")
	if !ok {
		return
	}
	doc, err := svc.Tenancy.GetDocument(c.Request.Context(), p, id)
	if err != nil {
		utils.RespondWithServiceError(c, err, "Document not found")
		return
	}
	c.JSON(http.StatusOK, doc)
}

func DeleteTenantDocument(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "document")
	if !ok {
		return
	}
	if err := svc.Tenancy.DeleteDocument(c.Request.Context(), user, id); err != nil {
		utils.RespondWithServiceError(c, err, "Document not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}
