package app

import (
	"rajpath_backend/internal/config"
	"rajpath_backend/internal/middleware"
	"rajpath_backend/internal/model"
	"rajpath_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 目录与课时交互允许游客浏览，与前端行为一致；
	// 携带合法token时注入身份，游客照常放行
	browse := router.Group("/api")
	browse.Use(middleware.TryAuthMiddleware(cfg))
	{
		browse.GET("/courses", c.course.ListCourses)
		browse.GET("/courses/:courseId", c.course.GetCourse)
		browse.DELETE("/courses/:courseId/session", c.course.CloseCourse)

		// 课时交互：本地进度模型，游客同样可用
		lessons := browse.Group("/courses/:courseId/lessons/:lessonId")
		{
			lessons.POST("/toggle", c.lesson.ToggleCompletion)
			lessons.PUT("/notes", c.lesson.UpdateNotes)
			lessons.POST("/summary", c.lesson.GenerateSummary)
			lessons.POST("/quiz", c.lesson.GenerateQuiz)
			lessons.POST("/answer", c.lesson.SelectAnswer)
			lessons.POST("/check", c.lesson.CheckQuiz)
		}

		browse.GET("/speech/voices", c.speech.Voices)
		browse.POST("/speech", c.speech.Synthesize)
		browse.POST("/playback/session", c.speech.NewPlaybackSession)
		browse.POST("/playback", c.speech.RequestPlayback)
		browse.POST("/playback/stop", c.speech.StopPlayback)
	}

	// 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)
		authGroup.GET("/courses/:courseId/certificate", c.certificate.GetCertificate)
		authGroup.GET("/courses/:courseId/share", c.certificate.GetSharePost)
	}

	// 管理端：目录内容维护
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		adminGroup.POST("/lessons/:lessonId/media", c.content.UploadLessonMedia)
		adminGroup.POST("/lessons/:lessonId/resources", c.content.AttachResource)
	}
}
