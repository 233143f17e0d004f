package controller

import (
	"strconv"

	"rajpath_backend/internal/repository"
	"rajpath_backend/internal/service"
	"rajpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Registry      *repository.CourseRegistry
	LessonService *service.LessonService
}

func NewCourseController(registry *repository.CourseRegistry, lessonService *service.LessonService) *CourseController {
	return &CourseController{Registry: registry, LessonService: lessonService}
}

func courseIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("courseId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return 0, false
	}
	return uint(id), true
}

// @Summary 课程列表
// @Tags 课程
// @Produce json
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	util.Success(ctx, c.Registry.List())
}

// @Summary 课程详情（打开浏览会话，合并已持久化的进度）
// @Tags 课程
// @Produce json
// @Router /api/courses/{courseId} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}

	view, err := c.LessonService.Open(ctx.Request.Context(), courseID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, view)
}

// @Summary 关闭课程浏览会话
// @Tags 课程
// @Router /api/courses/{courseId}/session [delete]
func (c *CourseController) CloseCourse(ctx *gin.Context) {
	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}

	c.LessonService.Close(courseID)
	util.Success(ctx, gin.H{"message": "session closed"})
}
