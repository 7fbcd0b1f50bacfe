// @title           Transport Indent API
// @version         1.0
// @description     Transport indent approval workflow - vehicle movement requests and their role-gated approval pipeline.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	_ "backend/docs"
	"backend/handlers"
	"backend/repository"
	"backend/services"
	"backend/storage"
	"backend/workflow"
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// ensureUsersTableSQL creates the users table the identity middleware and
// notification lookups resolve against. Accounts are provisioned by the
// identity provider; this service only reads them.
const ensureUsersTableSQL = `
	CREATE TABLE IF NOT EXISTS users (
		id         SERIAL PRIMARY KEY,
		email      TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		role_name  VARCHAR(32) NOT NULL DEFAULT 'REQUESTOR',
		unit       TEXT NOT NULL DEFAULT '',
		phone_no   VARCHAR(20) NOT NULL DEFAULT '',
		fcm_token  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origin)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

var digestRunning int32

func scheduleDigest(digest *services.DigestService) *cron.Cron {
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)
	schedule := os.Getenv("DIGEST_SCHEDULE")
	if schedule == "" {
		schedule = "0 8 * * *"
	}
	_, err := c.AddFunc(schedule, func() {
		if !atomic.CompareAndSwapInt32(&digestRunning, 0, 1) {
			log.Println("Previous digest still running. Skipping this run.")
			return
		}
		defer atomic.StoreInt32(&digestRunning, 0)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		digest.Run(ctx)
	})
	if err != nil {
		log.Fatalf("Failed to schedule digest: %v", err)
	}
	c.Start()
	return c
}

func registerRoutes(r *gin.Engine, db *sql.DB, engine *workflow.Engine) {
	gdb := storage.GetGormDB()

	api := r.Group("/api", handlers.RequireIdentity(db))

	// Indent lifecycle
	api.POST("/indents", handlers.CreateIndent(engine, gdb))
	api.GET("/indents", handlers.ListIndents(engine))
	api.GET("/indents/export", handlers.ExportIndentsExcel(engine))
	api.POST("/indents/bulk-approve", handlers.BulkApproveIndents(engine))
	api.GET("/indents/:id", handlers.GetIndent(engine))
	api.PUT("/indents/:id", handlers.UpdateIndent(engine, gdb))
	api.DELETE("/indents/:id", handlers.DeleteDraft(engine))

	// Approval actions
	api.POST("/indents/:id/submit", handlers.SubmitIndent(engine))
	api.POST("/indents/:id/approve", handlers.ApproveIndent(engine))
	api.POST("/indents/:id/reject", handlers.RejectIndent(engine))
	api.POST("/indents/:id/cancel", handlers.CancelIndent(engine))

	// Movement order artifacts
	api.GET("/indents/:id/qr", handlers.GateQRCode(engine))
	api.GET("/indents/:id/movement-order", handlers.MovementOrderPDF(engine))

	// Configuration CRUD
	api.POST("/vehicles", handlers.CreateVehicle(gdb))
	api.GET("/vehicles", handlers.GetVehicles(gdb))
	api.PUT("/vehicles/:id", handlers.UpdateVehicle(gdb))
	api.DELETE("/vehicles/:id", handlers.DeleteVehicle(gdb))
	api.POST("/locations", handlers.CreateLocation(gdb))
	api.GET("/locations", handlers.GetLocations(gdb))
	api.PUT("/locations/:id", handlers.UpdateLocation(gdb))
	api.DELETE("/locations/:id", handlers.DeleteLocation(gdb))
}

func main() {
	db := storage.InitDB()
	storage.InitGormDB()

	if _, err := db.Exec(ensureUsersTableSQL); err != nil {
		log.Fatalf("Failed to ensure users table: %v", err)
	}

	repo := repository.NewIndentRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure indent schema: %v", err)
	}
	cancel()

	emailSvc := services.NewEmailService()
	var fcmSvc *services.FCMService
	if credPath := os.Getenv("FCM_CREDENTIALS_PATH"); credPath != "" {
		svc, err := services.NewFCMService(credPath, db)
		if err != nil {
			log.Printf("FCM disabled: %v", err)
		} else {
			fcmSvc = svc
		}
	}

	notifier := handlers.NewDecisionNotifier(db, emailSvc, fcmSvc)
	engine := workflow.NewEngine(repo, notifier)

	digestCron := scheduleDigest(services.NewDigestService(db, emailSvc))
	defer digestCron.Stop()

	r := gin.Default()
	r.Use(cors.New(CORSConfig()))

	registerRoutes(r, db, engine)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	r.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	if _, err := strconv.Atoi(port); err != nil {
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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
