package controller

import (
	"rajpath_backend/internal/service"
	"rajpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// @Summary 翻转课时完成状态
// @Tags 课时
// @Router /api/courses/{courseId}/lessons/{lessonId}/toggle [post]
func (c *LessonController) ToggleCompletion(ctx *gin.Context) {
	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}
	lessonID := ctx.Param("lessonId")

	// 未知id在管理器内静默忽略，响应里返回最新快照
	c.LessonService.ToggleCompletion(ctx.Request.Context(), courseID, lessonID)

	view, err := c.LessonService.Snapshot(courseID)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, view)
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

// @Summary 更新课时笔记（防抖保存状态机）
// @Tags 课时
// @Router /api/courses/{courseId}/lessons/{lessonId}/notes [put]
func (c *LessonController) UpdateNotes(ctx *gin.Context) {
	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}
	lessonID := ctx.Param("lessonId")

	var req NotesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	c.LessonService.SetNotes(ctx.Request.Context(), courseID, lessonID, req.Notes)

	view, err := c.LessonService.Snapshot(courseID)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, view)
}

// @Summary 生成课时AI摘要
// @Tags 课时
// @Router /api/courses/{courseId}/lessons/{lessonId}/summary [post]
func (c *LessonController) GenerateSummary(ctx *gin.Context) {
	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}
	lessonID := ctx.Param("lessonId")

	lesson, err := c.LessonService.RequestSummary(ctx.Request.Context(), courseID, lessonID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	view, err := c.LessonService.Snapshot(courseID)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, gin.H{"lesson": lesson, "view": view})
}

// @Summary 生成课时AI测验
// @Tags 课时
// @Router /api/courses/{courseId}/lessons/{lessonId}/quiz [post]
func (c *LessonController) GenerateQuiz(ctx *gin.Context) {
	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}
	lessonID := ctx.Param("lessonId")

	lesson, err := c.LessonService.RequestQuiz(ctx.Request.Context(), courseID, lessonID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	view, err := c.LessonService.Snapshot(courseID)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, gin.H{"lesson": lesson, "view": view})
}

type AnswerRequest struct {
	QuestionIndex int `json:"questionIndex" binding:"min=0"`
	OptionIndex   int `json:"optionIndex" binding:"min=0"`
}

// @Summary 记录测验作答（使已有判分结果失效）
// @Tags 课时
// @Router /api/courses/{courseId}/lessons/{lessonId}/answer [post]
func (c *LessonController) SelectAnswer(ctx *gin.Context) {
	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}
	lessonID := ctx.Param("lessonId")

	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	c.LessonService.SelectAnswer(courseID, lessonID, req.QuestionIndex, req.OptionIndex)

	view, err := c.LessonService.Snapshot(courseID)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, view)
}

// @Summary 测验判分
// @Tags 课时
// @Router /api/courses/{courseId}/lessons/{lessonId}/check [post]
func (c *LessonController) CheckQuiz(ctx *gin.Context) {
	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}
	lessonID := ctx.Param("lessonId")

	result, err := c.LessonService.CheckQuiz(courseID, lessonID)
	if err != nil {
		if err == util.ErrQuizNotGenerated {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, result)
}
