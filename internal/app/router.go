package app

import (
	"qa_forum_backend/docs"
	"qa_forum_backend/internal/config"
	"qa_forum_backend/internal/middleware"
	"qa_forum_backend/internal/model"
	"qa_forum_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/users/:id", c.user.GetUser)
	}

	// 2. 问答读取类：可选认证，游客可浏览，管理员能看到待审核的问题
	browse := router.Group("/api")
	browse.Use(middleware.TryAuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		browse.GET("/questions", c.question.GetQuestions)
		browse.GET("/questions/:id", c.question.GetQuestion)
	}

	// 3. 交互类：强制认证
	authorized := router.Group("/api")
	authorized.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authorized.GET("/profile", c.auth.GetProfile)
		authorized.POST("/users/avatar", c.user.UploadAvatar)

		authorized.POST("/questions", c.question.CreateQuestion)
		authorized.PUT("/questions/:id", c.question.UpdateQuestion)
		authorized.DELETE("/questions/:id", c.question.DeleteQuestion)
		authorized.POST("/questions/:id/answers", c.answer.CreateAnswer)
		authorized.PUT("/questions/:id/accept/:answerId", c.question.AcceptAnswer)

		authorized.PUT("/answers/:id/vote", c.answer.VoteAnswer)
		authorized.DELETE("/answers/:id", c.answer.DeleteAnswer)

		authorized.GET("/notifications", c.notification.GetNotifications)
		authorized.GET("/notifications/unread-count", c.notification.GetUnreadCount)
		authorized.PUT("/notifications/read-all", c.notification.MarkAllRead)
		authorized.DELETE("/notifications/read", c.notification.ClearRead)

		// WebSocket 握手走同一套 JWT 校验，token 可放查询参数
		authorized.GET("/ws/notifications", c.notification.HandleWebSocket)
	}

	// 4. 管理员接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user), middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.GET("/users", c.user.ListUsers)
		admin.PUT("/questions/:id/status", c.question.SetQuestionStatus)
		admin.POST("/notifications", c.user.SendAdminMessage)
	}
}
