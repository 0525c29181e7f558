package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"netqa/internal/ai"
	appsvc "netqa/internal/app"
	"netqa/internal/bootstrap"
	"netqa/internal/cache"
	"netqa/internal/ratelimit"
	"netqa/internal/repository"
	"netqa/internal/transport/http/handler"
	"netqa/internal/transport/http/middleware"

	rabbitmq "netqa/internal/platform/rabbitmq"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	userRepo := repository.NewUserRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	generator := ai.NewChatStreamer(app.LLMClient, ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	})
	answerService := appsvc.NewAnswerService(
		messageRepo,
		publisher,
		historyCache,
		app.Retriever,
		generator,
		app.Logger,
	)

	limiter := newLimiter(app)
	limits := app.Config.RateLimit

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(authService)
	qaHandler := handler.NewQAHandler(answerService)

	auth := middleware.AuthJWT(app.Config.Auth.JWTSecret, authService)

	router.GET("/healthz", healthHandler.Check)

	router.POST("/register",
		middleware.RateLimitByIP(limiter, "register", limits.RegisterPerMinute),
		authHandler.Register,
	)
	router.POST("/token",
		middleware.RateLimitByIP(limiter, "token", limits.TokenPerMinute),
		authHandler.Token,
	)
	router.POST("/login",
		middleware.RateLimitByIP(limiter, "token", limits.TokenPerMinute),
		authHandler.Login,
	)

	router.GET("/history", auth, qaHandler.History)
	router.POST("/save_message", auth, qaHandler.SaveMessage)
	router.POST("/ask",
		auth,
		middleware.RateLimitByUser(limiter, "ask", limits.AskPerMinute),
		qaHandler.Ask,
	)

	return router
}

func newLimiter(app *bootstrap.App) ratelimit.Limiter {
	if app.Config.RateLimit.Driver == "memory" {
		return ratelimit.NewMemoryLimiter(time.Minute)
	}
	return ratelimit.NewRedisLimiter(app.Redis, time.Minute)
}
