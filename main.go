// @title           Drapely API
// @version         1.0
// @description     Backend API for the Drapely window furnishing retailer platform.

// @contact.name   API Support

// @BasePath  /

// @securityDefinitions.apikey SessionAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"context"
	"database/sql"
	"drapely/handlers"
	"drapely/storage"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

var cronRunning int32

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"https://app.drapely.io",
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
		"Access-Control-Request-Method", "Access-Control-Request-Headers",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Authorization", "Content-Type", "Content-Disposition",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

// safeGo runs one maintenance job inside the cron cycle with panic
// recovery, so one failing job never takes out the rest.
func safeGo(ctx context.Context, wg *sync.WaitGroup, name string, job func(ctx context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Cron job %s panicked: %v", name, r)
			}
		}()
		if err := job(ctx); err != nil {
			log.Printf("Cron job %s failed: %v", name, err)
		}
	}()
}

func startMaintenanceCron(db *sql.DB) *cron.Cron {
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)

	_, err := c.AddFunc("15 2 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		log.Println("Starting daily maintenance cron job")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		var wg sync.WaitGroup

		safeGo(ctx, &wg, "CleanupExpiredSessions", func(ctx context.Context) error {
			return storage.CleanupExpiredSessions(db)
		})

		safeGo(ctx, &wg, "FlagOverdueInvoices", func(ctx context.Context) error {
			return handlers.FlagOverdueInvoices(db)
		})

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All cron jobs finished")
		case <-ctx.Done():
			log.Println("Cron timeout reached, jobs cancelled")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily maintenance cron job: %v", err)
	}

	c.Start()
	return c
}

func main() {
	db := storage.InitDB()
	_ = storage.InitGormDB()

	maintenanceCron := startMaintenanceCron(db)
	defer maintenanceCron.Stop()

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(CORSConfig()))

	// ==================== AUTH ====================
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/logout", handlers.LogoutHandler(db))
	r.POST("/api/refresh", handlers.RefreshTokenHandler(db))
	r.POST("/api/register", handlers.RegisterHandler(db))
	r.GET("/api/sessions", handlers.ListSessionsHandler(db))

	// ==================== CLIENTS ====================
	r.GET("/api/clients", handlers.ListClientsHandler)
	r.POST("/api/clients", handlers.CreateClientHandler)
	r.GET("/api/clients/:id", handlers.GetClientHandler)
	r.PUT("/api/clients/:id", handlers.UpdateClientHandler)
	r.DELETE("/api/clients/:id", handlers.DeleteClientHandler)

	// ==================== PROJECTS & SURFACES ====================
	r.GET("/api/projects", handlers.ListProjectsHandler)
	r.POST("/api/projects", handlers.CreateProjectHandler)
	r.PUT("/api/projects/:project_id", handlers.UpdateProjectHandler)
	r.DELETE("/api/projects/:project_id", handlers.DeleteProjectHandler)
	r.GET("/api/projects/:project_id/surfaces", handlers.ListSurfacesHandler)
	r.POST("/api/projects/:project_id/surfaces", handlers.CreateSurfaceHandler)
	r.PUT("/api/projects/:project_id/surfaces/:surface_id", handlers.UpdateSurfaceHandler)
	r.DELETE("/api/projects/:project_id/surfaces/:surface_id", handlers.DeleteSurfaceHandler)
	r.GET("/api/projects/:project_id/surfaces/:surface_id/label", handlers.GenerateSurfaceQRLabelHandler)

	// ==================== FABRIC POOLS ====================
	r.GET("/api/projects/:project_id/fabric-pools", handlers.GetFabricPoolsHandler)
	r.POST("/api/projects/:project_id/fabric-needs", handlers.CalculateFabricNeedsHandler)
	r.PUT("/api/projects/:project_id/surfaces/:surface_id/fabric-usage", handlers.SaveSurfaceFabricUsageHandler)
	r.DELETE("/api/projects/:project_id/surfaces/:surface_id/fabric-usage", handlers.RemoveSurfaceFromPoolHandler)

	// ==================== PRICING GRIDS ====================
	r.GET("/api/pricing-grids", handlers.ListPricingGridsHandler)
	r.POST("/api/pricing-grids", handlers.CreatePricingGridHandler)
	r.POST("/api/pricing-rules", handlers.CreatePricingRuleHandler)
	r.DELETE("/api/pricing-rules/:id", handlers.DeletePricingRuleHandler)
	r.POST("/api/pricing-grids/resolve", handlers.ResolveGridHandler)
	r.POST("/api/pricing-grids/price", handlers.GridPriceHandler)

	// ==================== QUOTES ====================
	r.GET("/api/quotes", handlers.ListQuotesHandler)
	r.POST("/api/quotes", handlers.CreateQuoteHandler)
	r.GET("/api/quotes/:id", handlers.GetQuoteHandler)
	r.PUT("/api/quotes/:id/status", handlers.UpdateQuoteStatusHandler)
	r.POST("/api/quotes/:id/send", handlers.SendQuoteEmailHandler)
	r.GET("/api/quotes/:id/pdf", handlers.GenerateQuotePDFHandler)

	// ==================== INVOICES ====================
	r.GET("/api/invoices", handlers.ListInvoicesHandler)
	r.POST("/api/invoices", handlers.CreateInvoiceHandler)
	r.POST("/api/invoices/:id/send", handlers.SendInvoiceHandler)
	r.POST("/api/invoices/:id/email", handlers.SendInvoiceEmailHandler)
	r.POST("/api/invoices/:id/payments", handlers.RecordInvoicePaymentHandler)
	r.GET("/api/invoices/:id/pdf", handlers.GenerateInvoicePDFHandler)

	// ==================== APPOINTMENTS ====================
	r.GET("/api/appointments", handlers.ListAppointmentsHandler)
	r.POST("/api/appointments", handlers.CreateAppointmentHandler)
	r.PUT("/api/appointments/:id/status", handlers.UpdateAppointmentStatusHandler)
	r.PUT("/api/appointments/:id/reschedule", handlers.RescheduleAppointmentHandler)

	// ==================== INVENTORY & IMPORT ====================
	r.GET("/api/inventory", handlers.ListInventoryHandler)
	r.POST("/api/inventory", handlers.CreateInventoryItemHandler)
	r.GET("/api/inventory/:id", handlers.GetInventoryItemHandler)
	r.PUT("/api/inventory/:id", handlers.UpdateInventoryItemHandler)
	r.DELETE("/api/inventory/:id", handlers.DeleteInventoryItemHandler)
	r.POST("/api/import-jobs", handlers.ImportInventoryCSVHandler)
	r.GET("/api/exports/inventory/csv", handlers.ExportInventoryCSVHandler)
	r.GET("/api/exports/inventory/xlsx", handlers.ExportInventoryExcelHandler)
	r.GET("/api/exports/inventory/template", handlers.ExportInventoryTemplateHandler)
	r.GET("/api/import-jobs/:job_id", handlers.GetImportJobStatusHandler)
	r.POST("/api/import-jobs/:job_id/pause", handlers.PauseImportJobHandler)
	r.POST("/api/import-jobs/:job_id/resume", handlers.ResumeImportJobHandler)
	r.POST("/api/import-jobs/:job_id/cancel", handlers.CancelImportJobHandler)

	// ==================== NOTIFICATIONS & ACTIVITY ====================
	r.GET("/api/notifications", handlers.ListNotificationsHandler)
	r.PUT("/api/notifications/:id/read", handlers.MarkNotificationReadHandler)
	r.PUT("/api/notifications", handlers.MarkAllNotificationsReadHandler)
	r.GET("/api/activity-logs", handlers.ListActivityLogsHandler)

	// ==================== SWAGGER ====================
	r.GET("/swagger/*any", func(c *gin.Context) {
		if c.Param("any") == "/doc.json" {
			doc, err := swag.ReadDoc("swagger")
			if err != nil {
				c.String(http.StatusInternalServerError, `{"error":"swagger doc not found"}`)
				return
			}
			c.Header("Content-Type", "application/json")
			c.String(http.StatusOK, doc)
			return
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"))(c)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil || portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT environment variable: %s", port)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := handlers.GetImportJobManager().GracefulShutdown(20 * time.Second); err != nil {
		log.Printf("Warning: import job manager shutdown error: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
