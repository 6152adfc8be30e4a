package routes

import (
	"task-board-api/internal/handlers"
	"task-board-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(h *handlers.Handler) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task board API is running",
		})
	})

	// Public routes
	api := ginRouter.Group("/api")
	{
		api.POST("/login", h.Login)
	}

	// Protected routes. The board socket also accepts ?token= since browsers
	// cannot set headers on a websocket upgrade.
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware(h.Issuer()))
	{
		protectedRoutes.GET("/members", h.GetMembers)

		project := protectedRoutes.Group("/projects/:projectId")
		project.GET("/tasks", h.ListTasks)
		project.POST("/tasks", h.CreateTask)
		project.GET("/tasks/:id", h.GetTask)
		project.PATCH("/tasks/:id", h.UpdateTask)
		project.PATCH("/tasks/:id/status", h.UpdateTaskStatus)
		project.PATCH("/tasks/:id/fields/:field", h.UpdateTaskField)
		project.DELETE("/tasks/:id", h.DeleteTask)
		project.GET("/board", h.GetBoard)
		project.GET("/table", h.GetTable)
		project.GET("/ws", h.BoardSocket)
	}

	return ginRouter
}
