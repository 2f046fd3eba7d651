package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/service"
)

func SetupRoutes(
	router *gin.Engine,
	authService service.AuthService,
	planService service.PlanService,
	stravaService service.StravaService,
	taskService service.TaskService,
) {
	authHandler := NewAuthHandler(authService)
	planHandler := NewPlanHandler(planService)
	stravaHandler := NewStravaHandler(stravaService)
	taskHandler := NewTaskHandler(taskService)

	authMiddleware := AuthMiddleware(authService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register/coach", authHandler.RegisterCoach)
			authGroup.POST("/register/customer", authHandler.RegisterCustomer)
			authGroup.POST("/login", authHandler.Login)
		}

		// Provider-facing endpoints. The callback is authenticated by the
		// signed state parameter, the webhook by the verify token.
		stravaGroup := apiV1.Group("/strava")
		{
			stravaGroup.GET("/callback", stravaHandler.Callback)
			stravaGroup.GET("/webhook", stravaHandler.WebhookVerify)
			stravaGroup.POST("/webhook", stravaHandler.WebhookEvent)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)
		protected.GET("/coaches", authHandler.ListCoaches)

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.GET("/customers", authHandler.ListCustomers)
			adminGroup.GET("/plans", planHandler.ListAllPlans)
			adminGroup.DELETE("/users/:userId", authHandler.DeactivateUser)
		}

		// --- Coach Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			coachGroup.PUT("/profile", authHandler.UpdateCoachProfile)
			coachGroup.GET("/customers", authHandler.ListMyCustomers)
			coachGroup.GET("/customers/:customerId/plans", planHandler.ListCustomerPlans)
			coachGroup.GET("/customers/:customerId/activities", stravaHandler.ListCustomerActivities)
		}

		// --- Customer Routes ---
		customerGroup := protected.Group("/customer")
		customerGroup.Use(RoleMiddleware(domain.RoleCustomer))
		{
			customerGroup.PUT("/profile", authHandler.UpdateCustomerProfile)
			customerGroup.PUT("/coach", authHandler.AssignCoach)

			customerGroup.POST("/strava/connect", stravaHandler.Connect)
			customerGroup.DELETE("/strava", stravaHandler.Disconnect)
			customerGroup.GET("/strava", stravaHandler.Connection)
			customerGroup.POST("/strava/sync", stravaHandler.Sync)
			customerGroup.GET("/activities", stravaHandler.ListMyActivities)
		}

		// --- Training Plan Routes ---
		// Role checks beyond authentication happen in the service layer,
		// which also decides plan visibility.
		planGroup := protected.Group("/plans")
		{
			planGroup.POST("", RoleMiddleware(domain.RoleCoach, domain.RoleAdmin), planHandler.CreatePlan)
			planGroup.GET("/mine", planHandler.ListMyPlans)
			planGroup.GET("/:planId", planHandler.GetPlan)
			planGroup.PUT("/:planId", planHandler.UpdatePlan)
			planGroup.DELETE("/:planId", planHandler.DeletePlan)
			planGroup.PUT("/:planId/active", planHandler.SetPlanActive)
			planGroup.POST("/:planId/days", planHandler.AddTrainingDay)
			planGroup.DELETE("/:planId/days/:dayId", planHandler.RemoveTrainingDay)
		}

		// --- Personal Task Routes ---
		// Tasks are private to the caller; any authenticated role may use them.
		taskGroup := protected.Group("/tasks")
		{
			taskGroup.POST("", taskHandler.CreateTask)
			taskGroup.GET("", taskHandler.ListTasks)
			taskGroup.GET("/:taskId", taskHandler.GetTask)
			taskGroup.PUT("/:taskId", taskHandler.UpdateTask)
			taskGroup.DELETE("/:taskId", taskHandler.DeleteTask)
		}
	}
}
