package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, planHandler *PlanHandler, applicationHandler *ApplicationHandler, ledgerHandler *LedgerHandler, batchHandler *BatchHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Plan routes
	plans := api.Group("/plans")
	plans.POST("", planHandler.CreatePlan)
	plans.GET("", planHandler.GetPlans)
	plans.GET("/:id", planHandler.GetPlan)
	plans.PUT("/:id", planHandler.UpdatePlan)
	plans.PATCH("/:id/active", planHandler.SetPlanActive)
	plans.POST("/:id/quote", planHandler.Quote)

	// Application routes
	applications := api.Group("/applications")
	applications.POST("", applicationHandler.CreateApplication)
	applications.GET("", applicationHandler.GetApplications)
	applications.GET("/:id", applicationHandler.GetApplication)
	applications.GET("/:id/schedule", applicationHandler.GetSchedule)
	applications.POST("/:id/approve", applicationHandler.Approve)
	applications.POST("/:id/payments", applicationHandler.RecordPayment)
	applications.GET("/:id/penalties", ledgerHandler.GetEntriesByApplication)

	// Penalty ledger routes
	penalties := api.Group("/penalties")
	penalties.GET("/:id", ledgerHandler.GetEntry)
	penalties.POST("/:id/waive", ledgerHandler.Waive)

	// Batch routes
	batch := api.Group("/batch")
	batch.POST("/run", batchHandler.RunBatch)
}
