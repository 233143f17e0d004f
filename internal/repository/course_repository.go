package repository

import (
	"sort"
	"sync"

	"rajpath_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) FindAll() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Lessons.Resources").
		Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Lessons.Resources").
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// SetLessonMedia 更新课时的音/视频URL，kind为 "video" 或 "audio"
func (r *CourseRepository) SetLessonMedia(lessonID, kind, url string) error {
	column := "video_url"
	if kind == "audio" {
		column = "audio_url"
	}
	result := r.DB.Model(&model.Lesson{}).Where("id = ?", lessonID).Update(column, url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *CourseRepository) AddLessonResource(res *model.LessonResource) error {
	var count int64
	r.DB.Model(&model.Lesson{}).Where("id = ?", res.LessonID).Count(&count)
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.DB.Create(res).Error
}

// CourseRegistry 进程级共享课程注册表。目录启动时载入，
// 各视图从这里读课程；进度更新通过显式 Commit 写回，
// 其他视图因此能看到最新完成度。
type CourseRegistry struct {
	mu      sync.RWMutex
	courses map[uint]*model.Course
}

func NewCourseRegistry() *CourseRegistry {
	return &CourseRegistry{courses: make(map[uint]*model.Course)}
}

func (reg *CourseRegistry) LoadCatalog(courses []model.Course) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for i := range courses {
		c := courses[i]
		reg.courses[c.ID] = &c
	}
}

func (reg *CourseRegistry) Get(id uint) (*model.Course, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	c, ok := reg.courses[id]
	if !ok {
		return nil, false
	}
	cp := *c
	cp.Lessons = append([]model.Lesson(nil), c.Lessons...)
	return &cp, true
}

func (reg *CourseRegistry) List() []model.Course {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]model.Course, 0, len(reg.courses))
	for _, c := range reg.courses {
		cp := *c
		cp.Lessons = append([]model.Lesson(nil), c.Lessons...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Commit 把某课程的最新课时集合与推导出的进度镜像进注册表。
// 由状态管理器在每次变更后显式调用，不作为渲染副作用。
func (reg *CourseRegistry) Commit(courseID uint, lessons []model.Lesson, progress float64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	c, ok := reg.courses[courseID]
	if !ok {
		return
	}
	c.Lessons = append([]model.Lesson(nil), lessons...)
	c.Progress = progress
}
