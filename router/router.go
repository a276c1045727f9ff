package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeremiapane/restroflow/controllers"
	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/metrics"
	"github.com/yeremiapane/restroflow/middlewares"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

type Options struct {
	Restaurant     *services.Restaurant
	Hub            *hub.Hub
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Admin          controllers.AdminCredentials
	TokenTTL       time.Duration
	AllowedOrigins []string
	LoginRate      float64
	LoginBurst     int
}

func SetupRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestIDMiddleware())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.MetricsMiddleware(opts.Metrics))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.AllowedOrigins))

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(opts.Restaurant, opts.Admin, opts.TokenTTL)
	tableCtrl := controllers.NewTableController(opts.Restaurant)
	customerCtrl := controllers.NewCustomerController(opts.Restaurant)
	allocatorCtrl := controllers.NewAllocatorController(opts.Restaurant)
	waiterCtrl := controllers.NewWaiterController(opts.Restaurant)
	adminCtrl := controllers.NewAdminController(opts.Restaurant)
	liveCtrl := controllers.NewLiveController(opts.Hub, opts.AllowedOrigins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", adminCtrl.HealthCheck)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	loginLimiter := middlewares.NewRateLimiter(opts.LoginRate, opts.LoginBurst)
	intakeLimiter := middlewares.NewRateLimiter(opts.LoginRate, opts.LoginBurst)
	public := r.Group("/api")
	{
		public.POST("/login", loginLimiter.RateLimit(), userCtrl.Login)
		// Self-service queue join (kiosk, QR code at the door).
		public.POST("/intake", intakeLimiter.RateLimit(), customerCtrl.JoinQueue)
	}

	// Live view: token may come as a query parameter.
	live := r.Group("/")
	live.Use(middlewares.StreamAuthMiddleware())
	{
		live.GET("/api/stream", liveCtrl.Stream)
		live.GET("/ws", liveCtrl.WebSocket)
	}

	// ----------------------------------------------------------------
	//                 AUTHENTICATED ROUTES (admin + waiter)
	// ----------------------------------------------------------------
	auth := r.Group("/api")
	auth.Use(middlewares.AuthMiddleware())
	auth.Use(middlewares.RequireRole(utils.RoleAdmin, utils.RoleWaiter))

	auth.GET("/profile", userCtrl.GetProfile)

	// TABLES
	auth.GET("/tables", tableCtrl.GetAllTables)
	auth.GET("/tables/:table_id", tableCtrl.GetTable)
	auth.POST("/tables/:table_id/block", tableCtrl.BlockTable)
	auth.POST("/tables/:table_id/free", tableCtrl.FreeTable)

	// QUEUE
	auth.GET("/customers", customerCtrl.GetAllCustomers)
	auth.POST("/customers", customerCtrl.CreateCustomer)
	auth.GET("/customers/:customer_id", customerCtrl.GetCustomerByID)
	auth.DELETE("/customers/:customer_id", customerCtrl.DeleteCustomer)

	// SEATING
	auth.POST("/seat", allocatorCtrl.SeatCustomer)
	auth.POST("/seat/multiple", allocatorCtrl.SeatCustomerMultiple)
	auth.GET("/allocator", allocatorCtrl.GetStatus)

	// ----------------------------------------------------------------
	//                      ADMIN ONLY
	// ----------------------------------------------------------------
	admin := r.Group("/api/admin")
	admin.Use(middlewares.AuthMiddleware())
	admin.Use(middlewares.RequireRole(utils.RoleAdmin))

	admin.GET("/dashboard", adminCtrl.GetDashboard)
	admin.GET("/analytics", adminCtrl.GetAnalytics)
	admin.GET("/history", adminCtrl.GetHistory)
	admin.GET("/action-log", adminCtrl.GetActionLog)

	admin.POST("/tables", tableCtrl.CreateTable)
	admin.DELETE("/tables/:table_id", tableCtrl.DeleteTable)
	admin.PUT("/tables/order", tableCtrl.ReorderTables)

	admin.POST("/allocator/run", allocatorCtrl.RunAllocator)
	admin.POST("/allocator/toggle", allocatorCtrl.ToggleAllocator)
	admin.PUT("/allocator", allocatorCtrl.SetAllocator)

	admin.GET("/waiters", waiterCtrl.GetAllWaiters)
	admin.POST("/waiters", waiterCtrl.CreateWaiter)
	admin.PATCH("/waiters/:waiter_id", waiterCtrl.UpdateWaiter)
	admin.DELETE("/waiters/:waiter_id", waiterCtrl.DeleteWaiter)

	return r
}
