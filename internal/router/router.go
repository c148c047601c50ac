package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	appointmenthandler "github.com/qline/booking-api/internal/handler/appointment"
	authhandler "github.com/qline/booking-api/internal/handler/auth"
	branchhandler "github.com/qline/booking-api/internal/handler/branch"
	displayhandler "github.com/qline/booking-api/internal/handler/display"
	healthhandler "github.com/qline/booking-api/internal/handler/health"
	queuehandler "github.com/qline/booking-api/internal/handler/queue"
	"github.com/qline/booking-api/internal/middleware"
)

type Config struct {
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	authH        *authhandler.Handler
	appointmentH *appointmenthandler.Handler
	queueH       *queuehandler.Handler
	branchH      *branchhandler.Handler
	displayH     *displayhandler.Handler
	healthH      *healthhandler.Handler
	metrics      *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH *authhandler.Handler,
	appointmentH *appointmenthandler.Handler,
	queueH *queuehandler.Handler,
	branchH *branchhandler.Handler,
	displayH *displayhandler.Handler,
	healthH *healthhandler.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:       engine,
		auth:         auth,
		authH:        authH,
		appointmentH: appointmentH,
		queueH:       queueH,
		branchH:      branchH,
		displayH:     displayH,
		healthH:      healthH,
		metrics:      newRouterMetrics(),
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.Timeout(config.RequestTimeout),
		middleware.CORS(config.CORS),
	)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(limiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	r.healthH.RegisterRoutes(api)

	api.POST("/auth/login", r.authH.Login)

	r.setupPublicRoutes(api)
	r.setupStaffRoutes(api)
	r.setupAdminRoutes(api)
}

// Public routes resolve the actor from the anonymous customer identity
// header, or from a staff token when one is supplied.
func (r *Router) setupPublicRoutes(api *gin.RouterGroup) {
	public := api.Group("")
	public.Use(r.auth.Identify())

	public.GET("/branches", r.branchH.ListBranches)
	public.GET("/branches/:id", r.branchH.GetBranch)
	public.GET("/branches/:id/services", r.branchH.ListServices)
	public.GET("/branches/:id/service-points", r.branchH.ListServicePoints)
	public.GET("/services/:serviceId/schedules", r.branchH.ListSchedules)
	public.GET("/slots", r.appointmentH.GetAvailableSlots)

	public.POST("/appointments", r.appointmentH.CreateAppointment)
	public.GET("/appointments", r.appointmentH.ListAppointments)
	public.GET("/appointments/:id", r.appointmentH.GetAppointment)
	public.GET("/appointments/:id/history", r.appointmentH.GetRescheduleHistory)
	public.POST("/appointments/:id/cancel", r.appointmentH.CancelAppointment)
	public.POST("/appointments/:id/reschedule", r.appointmentH.RescheduleAppointment)

	// Track is identifier-free: the confirmation code is the credential.
	api.GET("/track/:code", r.appointmentH.TrackAppointment)

	display := api.Group("")
	display.Use(middleware.PublicCache(2))
	display.GET("/branches/:id/display", r.displayH.GetDisplay)
}

func (r *Router) setupStaffRoutes(api *gin.RouterGroup) {
	staff := api.Group("")
	staff.Use(r.auth.Authenticate(), middleware.NoStore())

	staff.POST("/checkin", r.appointmentH.CheckIn)
	staff.POST("/appointments/:id/complete", r.appointmentH.MarkCompleted)
	staff.POST("/appointments/:id/no-show", r.appointmentH.MarkNoShow)

	staff.POST("/queue", r.queueH.Admit)
	staff.GET("/queue", r.queueH.List)
	staff.POST("/queue/:id/advance", r.queueH.Advance)
	staff.POST("/queue/:id/transfer", r.queueH.Transfer)
}

func (r *Router) setupAdminRoutes(api *gin.RouterGroup) {
	admin := api.Group("")
	admin.Use(r.auth.Authenticate(), r.auth.RequireAdmin(), middleware.NoStore())

	admin.PATCH("/branches/:id/policy", r.branchH.UpdatePolicy)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func newRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "booking_api_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_api_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
