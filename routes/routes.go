package routes

import (
	"html/template"
	"net/http"

	"examquiz/handlers"
	"examquiz/logger"
	"examquiz/middleware"
	"examquiz/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	Logger          *logger.Logger
	Templates       *template.Template
	QuestionHandler *handlers.QuestionHandler

	// Optional
	Limiter        middleware.Limiter
	TracingService string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.TracingService != "" {
		router.Use(otelgin.Middleware(cfg.TracingService))
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.CORS())
	if cfg.Limiter != nil {
		router.Use(middleware.RateLimit(cfg.Limiter, cfg.Logger))
	}

	router.SetHTMLTemplate(cfg.Templates)
	SetupRoutes(router, cfg.QuestionHandler)
	return router
}

func SetupRoutes(router *gin.Engine, questionHandler *handlers.QuestionHandler) {
	// Pages
	router.GET("/", questionHandler.ExamPage)
	router.GET("/quiz", questionHandler.QuizPage)

	// API routes
	api := router.Group("/api")
	{
		api.GET("/random-questions", questionHandler.RandomQuestions)
		api.GET("/random-single", questionHandler.RandomByCategory(models.CategorySingle))
		api.GET("/random-multiple", questionHandler.RandomByCategory(models.CategoryMultiple))
		api.GET("/random-judgement", questionHandler.RandomByCategory(models.CategoryJudgement))
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
