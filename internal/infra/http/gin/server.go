package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"innkeep/internal/infra/obs"
)

type CalendarHTTP interface {
	Calendar(c *gin.Context)
	Select(c *gin.Context)
	Quote(c *gin.Context)
	Slots(c *gin.Context)
}

type BookingHTTP interface {
	Commit(c *gin.Context)
}

type Handlers struct {
	Calendar CalendarHTTP
	Booking  BookingHTTP
}

func NewServer(addr, env string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", GuestHeader, IdempotencyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	props := api.Group("/properties/:mode/:id")
	if h.Calendar != nil {
		props.GET("/calendar", h.Calendar.Calendar)
		props.POST("/selection", h.Calendar.Select)
		props.GET("/quote", h.Calendar.Quote)
		props.GET("/slots", h.Calendar.Slots)
	}
	if h.Booking != nil {
		props.POST("/commit", h.Booking.Commit)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
