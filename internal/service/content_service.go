package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"rajpath_backend/internal/model"
	"rajpath_backend/internal/repository"
	"rajpath_backend/internal/util"
	"rajpath_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentService 课程目录内容的维护：课时媒体上传、资料挂载。
// 面向管理端，学员侧只读目录。
type ContentService struct {
	CourseRepo *repository.CourseRepository
	Storage    *StorageService
}

func NewContentService(courseRepo *repository.CourseRepository, storage *StorageService) *ContentService {
	return &ContentService{CourseRepo: courseRepo, Storage: storage}
}

type LessonMediaUpload struct {
	URL   string          `json:"url"`
	Media *util.MediaInfo `json:"media,omitempty"`
}

// UploadLessonMedia 上传课时音视频：先落临时文件做ffmpeg探测，
// 再交给存储提供方，最后把URL写回目录库。探测失败不阻塞上传。
func (s *ContentService) UploadLessonMedia(ctx context.Context, lessonID string, file *multipart.FileHeader, kind string) (*LessonMediaUpload, error) {
	if kind != "video" && kind != "audio" {
		return nil, fmt.Errorf("unsupported media kind: %s", kind)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "lesson-media-*"+filepath.Ext(file.Filename))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	info, err := util.ProbeMedia(tmp.Name())
	if err != nil {
		logger.Log.Warn("media probe failed", zap.String("lessonId", lessonID), zap.Error(err))
		info = nil
	}

	reader, err := os.Open(tmp.Name())
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	objectName := fmt.Sprintf("lessons/%s/%s%s", lessonID, uuid.New().String(), filepath.Ext(file.Filename))
	contentType := file.Header.Get("Content-Type")
	url, err := s.Storage.Upload(ctx, objectName, reader, file.Size, contentType)
	if err != nil {
		return nil, err
	}

	if err := s.CourseRepo.SetLessonMedia(lessonID, kind, url); err != nil {
		return nil, err
	}

	return &LessonMediaUpload{URL: url, Media: info}, nil
}

// AttachResource 给课时挂一条资料（文章/PDF/外链）
func (s *ContentService) AttachResource(lessonID, title, rawURL, resType string) (*model.LessonResource, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("resource title and url are required")
	}

	res := &model.LessonResource{
		LessonID: lessonID,
		Title:    title,
		URL:      rawURL,
		Type:     resType,
	}
	if err := s.CourseRepo.AddLessonResource(res); err != nil {
		return nil, err
	}
	return res, nil
}
