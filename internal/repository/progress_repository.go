package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"rajpath_backend/internal/model"
	"rajpath_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ProgressRepository 按课程持久化课时集合（完成标记、笔记、AI产物）。
// key: course-progress-<courseID>，value: 课时数组的JSON，与内存结构同形。
// 读写都是尽力而为：缺失或损坏的记录回退目录默认值，写失败只记日志。
type ProgressRepository struct {
	Redis *redis.Client
}

func NewProgressRepository(rdb *redis.Client) *ProgressRepository {
	return &ProgressRepository{Redis: rdb}
}

func progressKey(courseID uint) string {
	return fmt.Sprintf("course-progress-%d", courseID)
}

// Load 返回持久化过的课时集合；记录不存在或payload解析失败时返回 (nil, false)
func (r *ProgressRepository) Load(ctx context.Context, courseID uint) ([]model.Lesson, bool) {
	data, err := r.Redis.Get(ctx, progressKey(courseID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Log.Warn("failed to load course progress",
			zap.Uint("courseId", courseID), zap.Error(err))
		return nil, false
	}

	var lessons []model.Lesson
	if err := json.Unmarshal(data, &lessons); err != nil {
		logger.Log.Warn("corrupted course progress payload, falling back to catalog defaults",
			zap.Uint("courseId", courseID), zap.Error(err))
		return nil, false
	}
	return lessons, true
}

// Save 写入失败不向上抛，也不回滚内存状态
func (r *ProgressRepository) Save(ctx context.Context, courseID uint, lessons []model.Lesson) {
	data, err := json.Marshal(lessons)
	if err != nil {
		logger.Log.Error("failed to marshal course progress",
			zap.Uint("courseId", courseID), zap.Error(err))
		return
	}

	if err := r.Redis.Set(ctx, progressKey(courseID), data, 0).Err(); err != nil {
		logger.Log.Error("failed to save course progress",
			zap.Uint("courseId", courseID), zap.Error(err))
	}
}
