package main

import (
	"campus-project-hub/internal/config"
	"campus-project-hub/internal/db"
	"campus-project-hub/internal/files"
	"campus-project-hub/internal/membership"
	"campus-project-hub/internal/middleware"
	"campus-project-hub/internal/notify"
	"campus-project-hub/internal/project"
	"campus-project-hub/internal/proposal"
	"campus-project-hub/internal/worker"
	"campus-project-hub/redis"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Seed database with initial data (for development)
	db.SeedData()

	// Initialize cache
	cache := redis.New(config.AppConfig.RedisAddress)
	defer cache.Close()

	// Initialize blob store
	blobStore, err := files.NewMinioStore(
		config.AppConfig.MinioEndpoint,
		config.AppConfig.MinioAccessKey,
		config.AppConfig.MinioSecretKey,
		config.AppConfig.MinioBucket,
		config.AppConfig.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("error connecting to object storage %v", err)
	}

	// Background workers for notifications and cache writes
	pool := worker.NewWorkerPool(4)
	defer pool.Shutdown()

	// Initialize repositories
	memberRepo := membership.NewRepository(db.AppDb)
	projectRepo := project.NewRepository(db.AppDb)
	proposalRepo := proposal.NewRepository(db.AppDb)
	fileRepo := files.NewFileRepository(db.AppDb)
	binder := files.NewBinder(fileRepo, blobStore)

	// Initialize services
	notifier := notify.NewClient(config.AppConfig.NotifyAddress)
	projectService := project.NewService(projectRepo, memberRepo, binder)
	proposalService := proposal.NewService(proposalRepo, projectRepo, memberRepo, binder, cache, pool, notifier)

	// Initialize handlers
	sessions := proposal.NewSessions()
	projectHandler := project.NewHandler(projectService)
	proposalHandler := proposal.NewHandler(proposalService, sessions)

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	authMiddleware := middleware.Auth{Secret: []byte(config.AppConfig.JWTSecret)}
	requireUser := authMiddleware.RequireUser()

	// Project routes
	router.POST("/projects", requireUser, projectHandler.Create)
	router.GET("/projects", requireUser, projectHandler.List)
	router.GET("/projects/:id", requireUser, projectHandler.Show)
	router.PUT("/projects/:id", requireUser, projectHandler.Update)
	router.POST("/projects/:id/files", requireUser, projectHandler.UploadFile)
	router.GET("/projects/:id/files", requireUser, projectHandler.ListFiles)

	// Proposal routes
	router.POST("/projects/:id/proposals", requireUser, proposalHandler.Create)
	router.GET("/projects/:id/proposals", requireUser, proposalHandler.List)
	router.GET("/projects/:id/proposals/:proposalId", requireUser, proposalHandler.Show)
	router.GET("/projects/:id/proposals/:proposalId/files", requireUser, proposalHandler.ListFiles)
	router.PATCH("/projects/:id/proposals/:proposalId", requireUser, proposalHandler.Transition)

	// Staged-edit (aggregator) routes
	router.POST("/projects/:id/pending", requireUser, proposalHandler.RecordPending)
	router.POST("/projects/:id/pending/submit", requireUser, proposalHandler.SubmitPending)
	router.DELETE("/projects/:id/pending", requireUser, proposalHandler.AbandonPending)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
