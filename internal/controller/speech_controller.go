package controller

import (
	"net/http"

	"rajpath_backend/internal/model"
	"rajpath_backend/internal/service"
	"rajpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SpeechController struct {
	SpeechService   *service.SpeechService
	PlaybackService *service.PlaybackService
}

func NewSpeechController(speechService *service.SpeechService, playbackService *service.PlaybackService) *SpeechController {
	return &SpeechController{SpeechService: speechService, PlaybackService: playbackService}
}

type SpeechRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Text      string `json:"text" binding:"required"`
	Voice     string `json:"voice"`
}

// @Summary 合成语音并返回WAV
// @Tags 语音
// @Router /api/speech [post]
func (c *SpeechController) Synthesize(ctx *gin.Context) {
	var req SpeechRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.SpeechService.Synthesize(ctx.Request.Context(), req.SessionID, req.Text, model.TTSVoice(req.Voice))
	if err != nil {
		switch err {
		case util.ErrInvalidVoice:
			util.BadRequest(ctx, err.Error())
		case util.ErrSpeechBusy:
			util.Error(ctx, http.StatusConflict, err.Error())
		default:
			// 页面级错误，前端提示后可重试
			util.Error(ctx, http.StatusBadGateway, err.Error())
		}
		return
	}

	ctx.Data(http.StatusOK, result.ContentType, result.Audio)
}

// @Summary 可用音色列表
// @Tags 语音
// @Router /api/speech/voices [get]
func (c *SpeechController) Voices(ctx *gin.Context) {
	util.Success(ctx, model.AvailableVoices)
}

// @Summary 新建播放会话
// @Tags 语音
// @Router /api/playback/session [post]
func (c *SpeechController) NewPlaybackSession(ctx *gin.Context) {
	util.Success(ctx, gin.H{"sessionId": c.PlaybackService.NewSession()})
}

type PlaybackRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	MediaID   string `json:"mediaId" binding:"required"`
}

// @Summary 申请独占播放，返回需暂停的媒体id
// @Tags 语音
// @Router /api/playback [post]
func (c *SpeechController) RequestPlayback(ctx *gin.Context) {
	var req PlaybackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	previous := c.PlaybackService.RequestPlayback(req.SessionID, req.MediaID)
	util.Success(ctx, gin.H{"pause": previous})
}

// @Summary 停止播放会话
// @Tags 语音
// @Router /api/playback/stop [post]
func (c *SpeechController) StopPlayback(ctx *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	c.PlaybackService.Stop(req.SessionID)
	util.Success(ctx, gin.H{"message": "stopped"})
}
