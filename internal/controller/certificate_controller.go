package controller

import (
	"rajpath_backend/internal/service"
	"rajpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
	AuthService        *service.AuthService
}

func NewCertificateController(certService *service.CertificateService, authService *service.AuthService) *CertificateController {
	return &CertificateController{CertificateService: certService, AuthService: authService}
}

// @Summary 结业证书（进度100%才可领取）
// @Tags 证书
// @Security BearerAuth
// @Router /api/courses/{courseId}/certificate [get]
func (c *CertificateController) GetCertificate(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}

	cert, err := c.CertificateService.IssueCertificate(user, courseID)
	if err != nil {
		if err == util.ErrCourseIncomplete {
			util.Forbidden(ctx)
			return
		}
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, cert)
}

// @Summary 成果分享文案与LinkedIn链接
// @Tags 证书
// @Security BearerAuth
// @Router /api/courses/{courseId}/share [get]
func (c *CertificateController) GetSharePost(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, ok := courseIDParam(ctx)
	if !ok {
		return
	}

	post, err := c.CertificateService.BuildSharePost(user, courseID)
	if err != nil {
		if err == util.ErrCourseIncomplete {
			util.Forbidden(ctx)
			return
		}
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, post)
}
