package routes

import (
	"elms-backend/config"
	"elms-backend/controllers"
	"elms-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRouter wires every endpoint. controllers.Setup must have been called first.
func SetupRouter(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	utils.RegisterJSONFieldNames()

	r := gin.New()

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		// cors panics on an empty origin list
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	r.Use(config.PerformanceLogger(logger))
	r.Use(config.Recovery(logger))

	authMiddleware := utils.AuthMiddleware(db, cfg.JWT.Secret)

	auth := r.Group("/auth")
	{
		auth.Use(authMiddleware)
		auth.GET("/me", controllers.Me)
	}

	api := r.Group("/api")
	api.Use(authMiddleware)
	{
		users := api.Group("/users")
		{
			users.GET("", controllers.GetUsers)
			users.GET("/:id", controllers.GetUser)
		}

		properties := api.Group("/properties")
		{
			properties.POST("", controllers.CreateProperty)
			properties.GET("", controllers.GetProperties)
			properties.GET("/statistics", controllers.GetPropertyStatistics)
			properties.GET("/:id", controllers.GetProperty)
			properties.PUT("/:id", controllers.UpdateProperty)
			properties.PATCH("/:id", controllers.UpdateProperty)
			properties.DELETE("/:id", controllers.DeleteProperty)
			properties.GET("/:id/units", controllers.GetPropertyUnits)
			properties.GET("/:id/vacant_units", controllers.GetPropertyVacantUnits)
		}

		units := api.Group("/units")
		{
			units.POST("", controllers.CreateUnit)
			units.GET("", controllers.GetUnits)
			units.GET("/vacant", controllers.GetVacantUnits)
			units.GET("/occupied", controllers.GetOccupiedUnits)
			units.GET("/:id", controllers.GetUnit)
			units.PUT("/:id", controllers.UpdateUnit)
			units.PATCH("/:id", controllers.UpdateUnit)
			units.DELETE("/:id", controllers.DeleteUnit)
		}

		tenants := api.Group("/tenants")
		{
			tenants.POST("", controllers.CreateTenant)
			tenants.GET("", controllers.GetTenants)
			tenants.GET("/active", controllers.GetActiveTenants)
			tenants.GET("/vacated", controllers.GetVacatedTenants)
			tenants.GET("/:id", controllers.GetTenant)
			tenants.PUT("/:id", controllers.UpdateTenant)
			tenants.PATCH("/:id", controllers.UpdateTenant)
			tenants.DELETE("/:id", controllers.DeleteTenant)
			tenants.POST("/:id/vacate", controllers.VacateTenant)
			tenants.GET("/:id/documents", controllers.GetTenantDocumentsForTenant)
		}

		documents := api.Group("/tenant-documents")
		{
			documents.POST("", controllers.CreateTenantDocument)
			documents.GET("", controllers.GetTenantDocuments)
			documents.GET("/:id", controllers.GetTenantDocument)
			documents.DELETE("/:id", controllers.DeleteTenantDocument)
		}

		invoices := api.Group("/invoices")
		{
			invoices.POST("", controllers.CreateInvoice)
			invoices.GET("", controllers.GetInvoices)
			invoices.GET("/pending", controllers.GetPendingInvoices)
			invoices.GET("/overdue", controllers.GetOverdueInvoices)
			invoices.GET("/paid", controllers.GetPaidInvoices)
			invoices.GET("/statistics", controllers.GetInvoiceStatistics)
			invoices.GET("/:id", controllers.GetInvoice)
			invoices.PUT("/:id", controllers.UpdateInvoice)
			invoices.PATCH("/:id", controllers.UpdateInvoice)
			invoices.DELETE("/:id", controllers.DeleteInvoice)
		}

		payments := api.Group("/payments")
		{
			payments.POST("", controllers.CreatePayment)
			payments.GET("", controllers.GetPayments)
			payments.GET("/recent", controllers.GetRecentPayments)
			payments.GET("/by_tenant", controllers.GetPaymentsByTenant)
			payments.GET("/statistics", controllers.GetPaymentStatistics)
			payments.GET("/:id", controllers.GetPayment)
			payments.PUT("/:id", controllers.UpdatePayment)
			payments.PATCH("/:id", controllers.UpdatePayment)
			payments.DELETE("/:id", controllers.DeletePayment)
		}

		receipts := api.Group("/receipts")
		{
			receipts.GET("", controllers.GetReceipts)
			receipts.GET("/:id", controllers.GetReceipt)
		}

		complaints := api.Group("/complaints")
		{
			complaints.POST("", controllers.CreateComplaint)
			complaints.GET("", controllers.GetComplaints)
			complaints.GET("/submitted", controllers.GetSubmittedComplaints)
			complaints.GET("/in_progress", controllers.GetInProgressComplaints)
			complaints.GET("/resolved", controllers.GetResolvedComplaints)
			complaints.GET("/urgent", controllers.GetUrgentComplaints)
			complaints.GET("/statistics", controllers.GetComplaintStatistics)
			complaints.GET("/:id", controllers.GetComplaint)
			complaints.PUT("/:id", controllers.UpdateComplaint)
			complaints.PATCH("/:id", controllers.UpdateComplaint)
			complaints.DELETE("/:id", controllers.DeleteComplaint)
			complaints.POST("/:id/assign", controllers.AssignComplaint)
			complaints.POST("/:id/resolve", controllers.ResolveComplaint)
			complaints.POST("/:id/close", controllers.CloseComplaint)
		}

		images := api.Group("/complaint-images")
		{
			images.POST("", controllers.CreateComplaintImage)
			images.GET("", controllers.GetComplaintImages)
			images.DELETE("/:id", controllers.DeleteComplaintImage)
		}

		// Dashboard routes
		api.GET("/dashboard", controllers.GetDashboardOverview)

		reminders := api.Group("/reminders")
		{
			reminders.POST("/sweep", controllers.RunOverdueSweep)
			reminders.GET("/logs", controllers.GetReminderLogs)
		}
	}

	return r
}
