package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"laundry-backend/controllers"
	"laundry-backend/middlewares"
	"laundry-backend/models"
	"laundry-backend/services"
)

// SetupRouter wires every endpoint with its middleware chain. Gateway is
// injected so tests can swap in a fake.
func SetupRouter(db *gorm.DB, gateway services.PaymentGateway) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.SecurityHeaders())

	auth := controllers.NewAuthController(services.NewAuthService(db))
	intake := services.NewOrderIntakeService(db)
	pickups := controllers.NewPickupController(intake)
	orders := controllers.NewOrderController(intake)
	drivers := controllers.NewDriverController(services.NewDriverDispatchEngine(db))
	stations := controllers.NewStationController(services.NewStationWorkEngine(db))
	bypasses := controllers.NewBypassController(services.NewBypassApprovalEngine(db))
	payments := controllers.NewPaymentController(services.NewPaymentService(db, gateway))
	notifications := controllers.NewNotificationController(services.NewNotificationService(db))
	attendance := controllers.NewAttendanceController(services.NewAttendanceService(db))

	strictLimiter := middlewares.NewStrictRateLimiter()
	r.POST("/register", strictLimiter, auth.Register)
	r.POST("/login", strictLimiter, auth.Login)
	r.POST("/payments/webhook", payments.Webhook)

	r.GET("/ws", middlewares.WebSocketAuthMiddleware(), controllers.WebSocketHandler)

	api := r.Group("/")
	api.Use(middlewares.AuthMiddleware())
	{
		customer := api.Group("/")
		customer.Use(middlewares.RequireRoles(models.RoleCustomer))
		{
			customer.POST("/pickups", pickups.Create)
			customer.DELETE("/pickups/:id", pickups.Cancel)
			customer.GET("/pickups/mine", pickups.Mine)
			customer.POST("/orders/:orderId/payments", payments.Create)
		}

		driver := api.Group("/driver")
		driver.Use(middlewares.RequireRoles(models.RoleDriver))
		{
			driver.GET("/pickups/available", drivers.AvailablePickups)
			driver.POST("/pickups/:id/claim", drivers.ClaimPickup)
			driver.GET("/tasks/active", drivers.ActiveTask)
			driver.POST("/tasks/:id/start", drivers.StartTask)
			driver.POST("/tasks/:id/cancel", drivers.CancelPickup)
			driver.POST("/tasks/:id/picked-up", drivers.PickedUp)
			driver.POST("/tasks/:id/arrived", drivers.ArrivedOutlet)
			driver.POST("/orders/:orderId/claim-delivery", drivers.ClaimDelivery)
			driver.POST("/tasks/:id/complete-delivery", drivers.CompleteDelivery)
		}

		worker := api.Group("/stations")
		worker.Use(middlewares.RequireRoles(models.RoleWorker))
		{
			worker.GET("/pending", stations.Pending)
			worker.POST("/:type/orders/:orderId/claim", stations.Claim)
			worker.POST("/:type/orders/:orderId/complete", stations.Complete)
			worker.POST("/:type/orders/:orderId/bypass", stations.RequestBypass)
		}

		admin := api.Group("/admin")
		admin.Use(middlewares.RequireRoles(models.RoleOutletAdmin))
		{
			admin.GET("/pickups", pickups.ForOutlet)
			admin.POST("/pickups/:id/approve", pickups.Approve)
			admin.POST("/orders/:id/process", orders.Process)
			admin.POST("/orders/:id/cancel", orders.Cancel)
			admin.GET("/bypass-requests", bypasses.Pending)
			admin.POST("/bypass-requests/:id/decide", bypasses.Decide)
		}

		staff := api.Group("/attendance")
		staff.Use(middlewares.RequireRoles(models.RoleWorker, models.RoleDriver, models.RoleOutletAdmin))
		{
			staff.POST("/clock-in", attendance.ClockIn)
			staff.POST("/clock-out", attendance.ClockOut)
			staff.GET("/today", attendance.Today)
		}

		api.GET("/orders", orders.List)
		api.GET("/orders/:id", orders.Detail)
		api.GET("/orders/:id/payments", payments.ForOrder)
		api.GET("/notifications", notifications.List)
		api.POST("/notifications/:id/read", notifications.MarkRead)
	}

	return r
}
