// internal/router/router.go
package router

import (
	"net/http"
	"strconv"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/handlers"
)

// Options carries the HTTP-facing settings of the server.
type Options struct {
	SessionSecret  string
	SecureCookies  bool
	AllowedOrigins []string
	// RateLimit is the number of test starts and result requests a client may make per minute.
	RateLimit uint
}

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Assessment *handlers.AssessmentHandler
	Games      *handlers.GamesHandler
	Results    *handlers.ResultsHandler
	Webhook    *handlers.WebhookHandler
	Health     gin.HandlerFunc
	Metrics    http.Handler
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.Header("Retry-After", strconv.Itoa(int(time.Until(info.ResetTime).Seconds())+1))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"error":   gin.H{"message": "Too many requests. Try again later.", "code": "RATE_LIMITED"},
	})
}

func Setup(log *zap.Logger, opt Options, h Handlers) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(log))

	if len(opt.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = opt.AllowedOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Requested-With"}
		corsConfig.ExposeHeaders = []string{RequestIDHeader}
		corsConfig.AllowCredentials = true
		router.Use(cors.New(corsConfig))
	}

	store := cookie.NewStore([]byte(opt.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opt.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7,
	})
	router.Use(sessions.Sessions("mysession", store))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	limit := opt.RateLimit
	if limit == 0 {
		limit = 5
	}
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/health", h.Health)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api")
	{
		api.GET("/questions", h.Assessment.Questions)

		tests := api.Group("/tests")
		{
			tests.POST("", limiter, h.Assessment.Start)
			tests.GET("/current", h.Assessment.Current)
			tests.GET("/:id", h.Assessment.Get)
			tests.POST("/:id/answers", h.Assessment.SubmitAnswer)
			tests.GET("/:id/answers", h.Assessment.Answers)

			tests.POST("/:id/games/:questionId", h.Games.Start)
			tests.GET("/:id/games/:questionId", h.Games.Poll)
			tests.POST("/:id/games/:questionId/events", h.Games.Event)
			tests.DELETE("/:id/games/:questionId", h.Games.Cancel)

			tests.POST("/:id/results", limiter, h.Results.Process)
			tests.GET("/:id/results", h.Results.Show)
			tests.GET("/:id/charts", h.Results.Charts)
			tests.POST("/:id/report", limiter, h.Results.SendReport)
		}
	}

	router.POST("/webhook/stripe", h.Webhook.Stripe)

	return router
}
