package controller

import (
	"rajpath_backend/internal/service"
	"rajpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// @Summary 上传课时媒体（管理员）
// @Tags 内容
// @Accept multipart/form-data
// @Security BearerAuth
// @Router /api/admin/lessons/{lessonId}/media [post]
func (c *ContentController) UploadLessonMedia(ctx *gin.Context) {
	lessonID := ctx.Param("lessonId")
	kind := ctx.DefaultPostForm("kind", "video")

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	result, err := c.ContentService.UploadLessonMedia(ctx.Request.Context(), lessonID, file, kind)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, result)
}

type ResourceRequest struct {
	Title string `json:"title" binding:"required"`
	URL   string `json:"url" binding:"required"`
	Type  string `json:"type"`
}

// @Summary 给课时挂载资料（管理员）
// @Tags 内容
// @Security BearerAuth
// @Router /api/admin/lessons/{lessonId}/resources [post]
func (c *ContentController) AttachResource(ctx *gin.Context) {
	lessonID := ctx.Param("lessonId")

	var req ResourceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.ContentService.AttachResource(lessonID, req.Title, req.URL, req.Type)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, res)
}
