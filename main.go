package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isaackogan/YorkUChats/cache"
	"github.com/isaackogan/YorkUChats/captcha"
	"github.com/isaackogan/YorkUChats/config"
	"github.com/isaackogan/YorkUChats/email"
	"github.com/isaackogan/YorkUChats/handler"
	appLogger "github.com/isaackogan/YorkUChats/logger"
	"github.com/isaackogan/YorkUChats/middleware"
	redisClient "github.com/isaackogan/YorkUChats/redis"
	"github.com/isaackogan/YorkUChats/store"
	"github.com/isaackogan/YorkUChats/verify"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// @title Course Links API
// @version 1.0
// @description Crowd-sourced directory of course resource links, organized course -> section -> link. Anonymous writes are gated by admission control, captcha and email verification.

// @host localhost:8080
// @BasePath /

func main() {
	// Initialize logger
	appLogger.Initialize()

	// Load configuration
	cfg := config.MustLoadConfig()
	appLogger.SetLevel(cfg.Logging.Level)
	log.Info().Msg("Configuration loaded successfully")

	// Initialize Redis client
	rdb := redisClient.NewClient(cfg.Redis)

	// Initialize course cache (if enabled)
	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		var err error
		cacheClient, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	// Wire the write-admission pipeline dependencies
	hierarchy := store.New(rdb)
	captchaGate := captcha.NewGate(cfg.Captcha)
	emailService := email.NewService(cfg.Email)
	verifier := verify.NewService(time.Duration(cfg.Verification.CodeTTLMinutes)*time.Minute, emailService)
	cooldown := time.Duration(cfg.Verification.CooldownMinutes) * time.Minute
	opTimeout := time.Duration(cfg.Redis.OperationTimeout) * time.Second

	log.Info().
		Bool("captcha_enabled", cfg.Captcha.Enabled && cfg.Captcha.Secret != "").
		Bool("email_enabled", cfg.Email.Enabled).
		Int("code_ttl_minutes", cfg.Verification.CodeTTLMinutes).
		Msg("Write-admission pipeline initialized")

	// Create handlers with dependency injection
	courseHandler := handler.NewCourseHandler(hierarchy, cacheClient, captchaGate, opTimeout)
	linkHandler := handler.NewLinkHandler(hierarchy, cacheClient, verifier, captchaGate, opTimeout)
	verificationHandler := handler.NewVerificationHandler(verifier, captchaGate, cooldown, opTimeout)
	reportHandler := handler.NewReportHandler(hierarchy, captchaGate, opTimeout)

	// Admission tiers. Tiers with the same endpoint class share one Tier
	// value so their counters are shared too.
	adm := cfg.Admission
	courseTier := middleware.NewTier("course_create", adm.CourseCreate, middleware.CallerKey)
	sectionTier := middleware.NewTier("section_create", adm.SectionCreate, middleware.CallerKey)
	linkOpsTier := middleware.NewTier("link_ops", adm.LinkOps, middleware.CallerKey)
	searchTier := middleware.NewTier("search", adm.Search, middleware.CallerKey)
	detailTier := middleware.NewTier("course_detail", adm.CourseDetail, middleware.CallerKey)
	clickTightTier := middleware.NewTier("click_tight", adm.ClickTight, middleware.CallerKey)
	clickHourlyTier := middleware.NewTier("click_hourly", adm.ClickHourly, middleware.CallerKey)
	reportTier := middleware.NewTier("report", adm.Report, middleware.CallerKey)
	verifyCallerTier := middleware.NewTier("verify_caller", adm.VerifyCaller, middleware.CallerKey)
	verifyGlobalTier := middleware.NewTier("verify_global", adm.VerifyGlobal, middleware.GlobalKey)

	// Set up router
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger)

	r.HandleFunc("/", courseHandler.Liveness).Methods("GET")

	r.Handle("/courses",
		middleware.Stack(http.HandlerFunc(courseHandler.ListCourses), searchTier)).Methods("GET")
	r.Handle("/stats",
		middleware.Stack(http.HandlerFunc(courseHandler.GlobalStats), searchTier)).Methods("GET")
	r.Handle("/courses/{code}",
		middleware.Stack(http.HandlerFunc(courseHandler.GetCourse), detailTier)).Methods("GET")
	r.Handle("/courses/{code}/stats",
		middleware.Stack(http.HandlerFunc(courseHandler.CourseStats), linkOpsTier)).Methods("GET")

	r.Handle("/courses",
		middleware.Stack(http.HandlerFunc(courseHandler.CreateCourse), courseTier)).Methods("POST")
	r.Handle("/courses/{code}/sections",
		middleware.Stack(http.HandlerFunc(courseHandler.CreateSection), sectionTier)).Methods("POST")
	r.Handle("/courses/{code}/sections/{section}/link",
		middleware.Stack(http.HandlerFunc(linkHandler.CreateLink), linkOpsTier)).Methods("POST")
	r.Handle("/courses/{code}/sections/{section}/link/click",
		middleware.Stack(http.HandlerFunc(linkHandler.ClickLink), linkOpsTier, clickTightTier, clickHourlyTier)).Methods("POST")

	r.Handle("/verify/create",
		middleware.Stack(http.HandlerFunc(verificationHandler.CreateVerification), verifyCallerTier, verifyGlobalTier)).Methods("POST")
	r.Handle("/report",
		middleware.Stack(http.HandlerFunc(reportHandler.SubmitReport), reportTier)).Methods("POST")

	// Configure HTTP server
	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", serverAddress).
			Str("scheme", cfg.WebServer.Scheme).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Close cache
	if cacheClient != nil {
		cacheClient.Close()
	}

	// Close Redis connection
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis connection")
	}

	log.Info().Msg("Server stopped gracefully")
}
