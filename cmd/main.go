package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/lshigami/examflow/config"
	"github.com/lshigami/examflow/database"
	_ "github.com/lshigami/examflow/docs"
	"github.com/lshigami/examflow/internal/controller"
	adminctrl "github.com/lshigami/examflow/internal/controller/admin"
	userctrl "github.com/lshigami/examflow/internal/controller/user"
	"github.com/lshigami/examflow/internal/logger"
	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/service"
)

// @title ExamFlow API
// @version 1.0
// @description Timed exam sessions with audio capture, durable submissions and resumable AI evaluation.
// @termsOfService http://swagger.io/terms/
// @contact.name API Support
// @contact.url http://example.com/support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.NopLogger,

		// Core
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // nil without DATABASE_HOST
			NewGinEngine,
		),

		// Infrastructure
		fx.Provide(
			NewRepositories,
			NewObjectStore,
			NewRedisClient,
			NewDeviceLease,
			NewPublisher,
			NewPushDevice,
			NewEvaluator,
		),

		// Services
		fx.Provide(
			service.NewAdminTestService,
			service.NewUserTestService,
			service.NewScoreConverterService,
			NewScoreAggregator,
			NewEvaluationOrchestrator,
			NewEvaluationDispatcher,
			service.NewSubmissionBuilder,
			NewSessionService,
			NewSubmissionService,
		),

		// Controllers
		fx.Provide(
			adminctrl.NewAdminTestController,
			userctrl.NewUserTestController,
			userctrl.NewSessionController,
			userctrl.NewSubmissionController,
			userctrl.NewAudioController,
		),

		fx.Invoke(ConfigureLogger),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(SeedCatalog),
		fx.Invoke(StartBackgroundWorkers),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop application cleanly")
	}
}

func ConfigureLogger(cfg *config.Config) {
	logger.Configure(cfg.Log.Level, cfg.Log.Env)
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", controller.UserIDHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminTestCtrl *adminctrl.AdminTestController,
	userTestCtrl *userctrl.UserTestController,
	sessionCtrl *userctrl.SessionController,
	submissionCtrl *userctrl.SubmissionController,
	audioCtrl *userctrl.AudioController,
) {
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		adminAPIGroup.POST("/tests", adminTestCtrl.CreateTest)
	}

	publicAPIGroup := router.Group("/api/v1")
	{
		publicAPIGroup.GET("/tests", userTestCtrl.GetAllTests)
		publicAPIGroup.GET("/tests/:test_id", userTestCtrl.GetTestDetails)
	}

	userAPIGroup := router.Group("/api/v1", controller.RequireUser())
	{
		userAPIGroup.GET("/tests/:test_id/my-submissions", userTestCtrl.GetMySubmissions)

		sessions := userAPIGroup.Group("/sessions")
		sessions.POST("", sessionCtrl.CreateSession)
		sessions.GET("/:session_id", sessionCtrl.GetSession)
		sessions.GET("/:session_id/history", sessionCtrl.GetHistory)
		sessions.GET("/:session_id/audio", audioCtrl.StreamAudio)
		sessions.POST("/:session_id/start", sessionCtrl.StartSession)
		sessions.POST("/:session_id/advance", sessionCtrl.AdvanceSession)
		sessions.POST("/:session_id/navigate", sessionCtrl.NavigateSession)
		sessions.POST("/:session_id/pause", sessionCtrl.PauseSession)
		sessions.POST("/:session_id/resume", sessionCtrl.ResumeSession)
		sessions.PUT("/:session_id/answers/:part_id", sessionCtrl.RecordAnswer)
		sessions.POST("/:session_id/submit", sessionCtrl.SubmitSession)
		sessions.POST("/:session_id/abandon", sessionCtrl.AbandonSession)

		userAPIGroup.GET("/submissions/:submission_id", submissionCtrl.GetSubmission)
		userAPIGroup.POST("/submissions/:submission_id/reevaluate", submissionCtrl.Reevaluate)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("ExamFlow API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Test{},
		&model.Part{},
		&model.Submission{},
		&model.SubmissionAnswer{},
		&model.EvaluationUnit{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
