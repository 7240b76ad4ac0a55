package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title School Timetable API
// @version 1.0.0
// @description Conflict detection, week replication and substitutions for school timetables.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const cacheKeyPrefix = "timetable:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient redis.UniversalClient
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, hour slot cache disabled", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	r := buildRouter(cfg, db, redisClient, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func buildRouter(cfg *config.Config, db *sqlx.DB, redisClient redis.UniversalClient, logr *zap.Logger) *gin.Engine {
	validate := validator.New()

	assignmentRepo := repository.NewAssignmentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	hourSlotRepo := repository.NewHourSlotRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, cacheKeyPrefix, logr)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.HourSlotTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	hourSlotService := service.NewHourSlotIndexService(hourSlotRepo, db, cacheService, cfg.Cache.HourSlotTTL, validate, logr)
	exclusionService := service.NewCalendarExclusionService(calendarRepo, logr)
	replicationService := service.NewReplicationService(assignmentRepo, catalogRepo, exclusionService, db, metricsService, cfg.Replication.MaxRangeDays, validate, logr)
	substitutionService := service.NewSubstitutionService(assignmentRepo, teacherRepo, hourSlotRepo, db, metricsService, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, teacherRepo, catalogRepo, hourSlotRepo, db, validate, logr)
	reportService := service.NewReportService(teacherRepo, assignmentRepo, hourSlotService, logr)
	authService := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})

	metricsHandler := handler.NewMetricsHandler(metricsService, db)
	replicationHandler := handler.NewReplicationHandler(replicationService)
	substitutionHandler := handler.NewSubstitutionHandler(substitutionService)
	calendarHandler := handler.NewCalendarHandler(exclusionService)
	hourSlotHandler := handler.NewHourSlotHandler(hourSlotService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	reportHandler := handler.NewReportHandler(reportService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(
		internalmiddleware.JWT(authService),
		internalmiddleware.RequireRoles(models.RoleAdminSchool, models.RoleSuperAdmin),
		internalmiddleware.SchoolScope(),
	)

	api.GET("/metrics/summary", metricsHandler.Summary)

	api.POST("/replications/check", replicationHandler.Check)
	api.POST("/replications", replicationHandler.Replicate)

	api.POST("/assignments", assignmentHandler.Create)
	api.GET("/assignments/:id", assignmentHandler.Get)
	api.DELETE("/assignments/:id", assignmentHandler.Delete)
	api.GET("/teachers/:id/assignments", assignmentHandler.TeacherAssignments)

	substitutions := api.Group("/assignments/:id/substitutes", internalmiddleware.Feature("substitutions", cfg.Substitutions.Enabled))
	substitutions.GET("", substitutionHandler.Candidates)
	substitutions.POST("/:teacherId", substitutionHandler.Apply)

	api.GET("/calendar/exclusions", calendarHandler.Exclusion)

	api.GET("/hour-slots-groups/:id/index", hourSlotHandler.Index)
	api.POST("/hour-slots", hourSlotHandler.Create)

	reports := api.Group("/reports", internalmiddleware.Feature("reports", cfg.Reports.Enabled))
	reports.GET("/teacher-hours", reportHandler.TeacherHours)

	return r
}
