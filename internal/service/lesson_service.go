package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rajpath_backend/internal/model"
	"rajpath_backend/internal/repository"
	"rajpath_backend/internal/util"
	"rajpath_backend/pkg/logger"

	"go.uber.org/zap"
)

// ProgressStore 进度持久化的窄接口（Redis实现见 repository.ProgressRepository）
type ProgressStore interface {
	Load(ctx context.Context, courseID uint) ([]model.Lesson, bool)
	Save(ctx context.Context, courseID uint, lessons []model.Lesson)
}

// ContentGenerator AI内容客户端的窄接口（实现见 AIService）
type ContentGenerator interface {
	GenerateLessonSummary(ctx context.Context, title, description string) (string, error)
	GenerateQuizForLesson(ctx context.Context, title, description string) (*model.GeneratedQuiz, error)
}

const (
	genSummary = "summary"
	genQuiz    = "quiz"
)

// courseSession 一门课在浏览会话期间的全部可变状态。
// 课时集合只能经由 LessonService 的操作变更。
type courseSession struct {
	courseID uint
	course   model.Course // 元数据快照，Lessons 单独维护
	lessons  []model.Lesson

	// "<kind>:<lessonID>" -> 是否有在途生成请求
	generating map[string]bool
	summaryErr map[string]string
	quizErr    map[string]string

	// "<lessonID>-<questionIndex>" -> 所选选项下标，仅存内存
	answers map[string]int
	results map[string]*model.QuizResult

	recentlyCompleted string
	recentTimer       *time.Timer
	recentEpoch       int

	saveStatus model.SaveStatus
	saveTimer  *time.Timer
	idleTimer  *time.Timer
	saveEpoch  int

	closed bool
}

// CourseView 呈现层消费的只读快照
type CourseView struct {
	Course            model.Course                 `json:"course"`
	SaveStatus        model.SaveStatus             `json:"saveStatus"`
	RecentlyCompleted string                       `json:"recentlyCompleted,omitempty"`
	Generating        map[string]bool              `json:"generating,omitempty"`
	SummaryErrors     map[string]string            `json:"summaryErrors,omitempty"`
	QuizErrors        map[string]string            `json:"quizErrors,omitempty"`
	QuizResults       map[string]*model.QuizResult `json:"quizResults,omitempty"`
	UserAnswers       map[string]int               `json:"userAnswers,omitempty"`
}

// LessonService 课程进度与课时交互的唯一事实来源。
// 互斥锁把所有变更串行化，异步完成（AI调用、定时器）重新取锁后落回，
// 会话已关闭则丢弃结果。
type LessonService struct {
	mu       sync.Mutex
	sessions map[uint]*courseSession

	Registry  *repository.CourseRegistry
	store     ProgressStore
	generator ContentGenerator

	// 定时行为的时长，测试会缩短
	completionMarkerTTL time.Duration
	noteSaveQuiet       time.Duration
	noteSavedHold       time.Duration
}

func NewLessonService(registry *repository.CourseRegistry, store ProgressStore, generator ContentGenerator) *LessonService {
	return &LessonService{
		sessions:            make(map[uint]*courseSession),
		Registry:            registry,
		store:               store,
		generator:           generator,
		completionMarkerTTL: time.Second,
		noteSaveQuiet:       time.Second,
		noteSavedHold:       1500 * time.Millisecond,
	}
}

// Progress 完成度推导，空课时集合为0
func Progress(lessons []model.Lesson) float64 {
	if len(lessons) == 0 {
		return 0
	}
	completed := 0
	for _, l := range lessons {
		if l.Completed {
			completed++
		}
	}
	return float64(completed) / float64(len(lessons)) * 100
}

func genKey(kind, lessonID string) string {
	return kind + ":" + lessonID
}

func answerKey(lessonID string, questionIndex int) string {
	return fmt.Sprintf("%s-%d", lessonID, questionIndex)
}

// Open 为课程建立（或复用）会话：从注册表取目录课程，
// 按课时ID合并持久化的完成/笔记/摘要/测验；持久化记录缺失或
// 损坏时静默回退目录默认值。
func (s *LessonService) Open(ctx context.Context, courseID uint) (*CourseView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[courseID]; ok {
		return s.snapshotLocked(sess), nil
	}

	catalog, ok := s.Registry.Get(courseID)
	if !ok {
		return nil, util.ErrCourseNotFound
	}

	lessons := append([]model.Lesson(nil), catalog.Lessons...)
	if saved, ok := s.store.Load(ctx, courseID); ok {
		byID := make(map[string]*model.Lesson, len(saved))
		for i := range saved {
			byID[saved[i].ID] = &saved[i]
		}
		for i := range lessons {
			if prev, ok := byID[lessons[i].ID]; ok {
				lessons[i].Completed = prev.Completed
				lessons[i].Notes = prev.Notes
				lessons[i].Summary = prev.Summary
				lessons[i].GeneratedQuiz = prev.GeneratedQuiz
			}
		}
	}

	sess := &courseSession{
		courseID:   courseID,
		course:     *catalog,
		lessons:    lessons,
		generating: make(map[string]bool),
		summaryErr: make(map[string]string),
		quizErr:    make(map[string]string),
		answers:    make(map[string]int),
		results:    make(map[string]*model.QuizResult),
		saveStatus: model.SaveIdle,
	}
	s.sessions[courseID] = sess

	s.Registry.Commit(courseID, sess.lessons, Progress(sess.lessons))
	return s.snapshotLocked(sess), nil
}

// Close 结束会话；之后到达的异步结果一律丢弃
func (s *LessonService) Close(courseID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[courseID]
	if !ok {
		return
	}
	sess.closed = true
	if sess.recentTimer != nil {
		sess.recentTimer.Stop()
	}
	if sess.saveTimer != nil {
		sess.saveTimer.Stop()
	}
	if sess.idleTimer != nil {
		sess.idleTimer.Stop()
	}
	delete(s.sessions, courseID)
}

func (s *LessonService) Snapshot(courseID uint) (*CourseView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[courseID]
	if !ok {
		return nil, util.ErrCourseNotFound
	}
	return s.snapshotLocked(sess), nil
}

func (s *LessonService) snapshotLocked(sess *courseSession) *CourseView {
	course := sess.course
	course.Lessons = append([]model.Lesson(nil), sess.lessons...)
	course.Progress = Progress(sess.lessons)

	view := &CourseView{
		Course:            course,
		SaveStatus:        sess.saveStatus,
		RecentlyCompleted: sess.recentlyCompleted,
		Generating:        make(map[string]bool, len(sess.generating)),
		SummaryErrors:     make(map[string]string, len(sess.summaryErr)),
		QuizErrors:        make(map[string]string, len(sess.quizErr)),
		QuizResults:       make(map[string]*model.QuizResult, len(sess.results)),
		UserAnswers:       make(map[string]int, len(sess.answers)),
	}
	for k, v := range sess.generating {
		view.Generating[k] = v
	}
	for k, v := range sess.summaryErr {
		view.SummaryErrors[k] = v
	}
	for k, v := range sess.quizErr {
		view.QuizErrors[k] = v
	}
	for k, v := range sess.results {
		r := *v
		view.QuizResults[k] = &r
	}
	for k, v := range sess.answers {
		view.UserAnswers[k] = v
	}
	return view
}

func (s *LessonService) lessonLocked(sess *courseSession, lessonID string) *model.Lesson {
	for i := range sess.lessons {
		if sess.lessons[i].ID == lessonID {
			return &sess.lessons[i]
		}
	}
	return nil
}

// persistLocked 每次变更后镜像到进度存储与课程注册表，尽力而为
func (s *LessonService) persistLocked(ctx context.Context, sess *courseSession) {
	s.store.Save(ctx, sess.courseID, sess.lessons)
	s.Registry.Commit(sess.courseID, sess.lessons, Progress(sess.lessons))
}

// ToggleCompletion 翻转完成标记。未知课程/课时静默忽略。
// false->true 时发出恰好1秒的"刚完成"标记，供界面做完成动画。
func (s *LessonService) ToggleCompletion(ctx context.Context, courseID uint, lessonID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[courseID]
	if !ok {
		return
	}
	lesson := s.lessonLocked(sess, lessonID)
	if lesson == nil {
		return
	}

	lesson.Completed = !lesson.Completed

	if lesson.Completed {
		sess.recentlyCompleted = lessonID
		sess.recentEpoch++
		epoch := sess.recentEpoch
		if sess.recentTimer != nil {
			sess.recentTimer.Stop()
		}
		sess.recentTimer = time.AfterFunc(s.completionMarkerTTL, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			// Stop 停不住已触发、正等锁的回调；epoch不匹配说明标记
			// 已被更新的完成事件接管，这个回调作废
			if sess.closed || sess.recentEpoch != epoch {
				return
			}
			sess.recentlyCompleted = ""
		})
	}

	s.persistLocked(ctx, sess)
}

// SetNotes 原样替换笔记，不裁剪不校验。保存状态机：
// 立即进入 saving，任意课时1秒无后续编辑后进入 saved，再1.5秒回 idle；
// 同一时刻只有一个防抖定时器，新编辑取消并重启它。
func (s *LessonService) SetNotes(ctx context.Context, courseID uint, lessonID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[courseID]
	if !ok {
		return
	}
	lesson := s.lessonLocked(sess, lessonID)
	if lesson == nil {
		return
	}

	lesson.Notes = text
	sess.saveStatus = model.SaveSaving
	sess.saveEpoch++
	epoch := sess.saveEpoch

	if sess.saveTimer != nil {
		sess.saveTimer.Stop()
	}
	if sess.idleTimer != nil {
		sess.idleTimer.Stop()
	}

	sess.saveTimer = time.AfterFunc(s.noteSaveQuiet, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Stop 对已触发、阻塞在锁上的回调无效，单看 saveStatus 也分不清
		// saving 来自本次还是更新的编辑；epoch 是本次编辑的取消令牌
		if sess.closed || sess.saveEpoch != epoch {
			return
		}
		sess.saveStatus = model.SaveSaved
		sess.idleTimer = time.AfterFunc(s.noteSavedHold, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sess.closed || sess.saveEpoch != epoch {
				return
			}
			sess.saveStatus = model.SaveIdle
		})
	})

	s.persistLocked(ctx, sess)
}

// RequestSummary 为课时生成一次性摘要。无描述、已有摘要、
// 或该课时已有在途摘要请求时均为no-op。失败写入课时级错误，
// 可重试；成功后摘要永久缓存在课时上。
func (s *LessonService) RequestSummary(ctx context.Context, courseID uint, lessonID string) (*model.Lesson, error) {
	s.mu.Lock()

	sess, ok := s.sessions[courseID]
	if !ok {
		s.mu.Unlock()
		return nil, util.ErrCourseNotFound
	}
	lesson := s.lessonLocked(sess, lessonID)
	if lesson == nil {
		s.mu.Unlock()
		return nil, util.ErrLessonNotFound
	}

	key := genKey(genSummary, lessonID)
	if lesson.Description == "" || lesson.Summary != nil || sess.generating[key] {
		out := *lesson
		s.mu.Unlock()
		return &out, nil
	}

	sess.generating[key] = true
	delete(sess.summaryErr, lessonID)
	title, description := lesson.Title, lesson.Description
	s.mu.Unlock()

	// 单次尝试，无超时无重试
	summary, err := s.generator.GenerateLessonSummary(ctx, title, description)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.closed {
		// 视图已卸载，结果作废
		return nil, util.ErrCourseNotFound
	}
	delete(sess.generating, key)

	lesson = s.lessonLocked(sess, lessonID)
	if lesson == nil {
		return nil, util.ErrLessonNotFound
	}

	if err != nil {
		logger.Log.Warn("lesson summary generation failed",
			zap.Uint("courseId", courseID), zap.String("lessonId", lessonID), zap.Error(err))
		sess.summaryErr[lessonID] = err.Error()
		out := *lesson
		return &out, nil
	}

	lesson.Summary = &summary
	s.persistLocked(ctx, sess)

	out := *lesson
	return &out, nil
}

// RequestQuiz 与 RequestSummary 同样的门控与并发策略，但产出结构化
// 测验；安装新测验时清掉该课时已有的作答与判分结果。
func (s *LessonService) RequestQuiz(ctx context.Context, courseID uint, lessonID string) (*model.Lesson, error) {
	s.mu.Lock()

	sess, ok := s.sessions[courseID]
	if !ok {
		s.mu.Unlock()
		return nil, util.ErrCourseNotFound
	}
	lesson := s.lessonLocked(sess, lessonID)
	if lesson == nil {
		s.mu.Unlock()
		return nil, util.ErrLessonNotFound
	}

	key := genKey(genQuiz, lessonID)
	if lesson.Description == "" || lesson.GeneratedQuiz != nil || sess.generating[key] {
		out := *lesson
		s.mu.Unlock()
		return &out, nil
	}

	sess.generating[key] = true
	delete(sess.quizErr, lessonID)
	title, description := lesson.Title, lesson.Description
	s.mu.Unlock()

	quiz, err := s.generator.GenerateQuizForLesson(ctx, title, description)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.closed {
		return nil, util.ErrCourseNotFound
	}
	delete(sess.generating, key)

	lesson = s.lessonLocked(sess, lessonID)
	if lesson == nil {
		return nil, util.ErrLessonNotFound
	}

	if err == nil {
		err = validateQuiz(quiz)
	}
	if err != nil {
		logger.Log.Warn("lesson quiz generation failed",
			zap.Uint("courseId", courseID), zap.String("lessonId", lessonID), zap.Error(err))
		sess.quizErr[lessonID] = err.Error()
		out := *lesson
		return &out, nil
	}

	lesson.GeneratedQuiz = quiz
	for i := range quiz.Questions {
		delete(sess.answers, answerKey(lessonID, i))
	}
	delete(sess.results, lessonID)
	s.persistLocked(ctx, sess)

	out := *lesson
	return &out, nil
}

func validateQuiz(quiz *model.GeneratedQuiz) error {
	if quiz == nil || len(quiz.Questions) == 0 {
		return fmt.Errorf("AI returned an empty quiz")
	}
	for i, q := range quiz.Questions {
		if len(q.Options) == 0 {
			return fmt.Errorf("question %d has no options", i+1)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("question %d has an out-of-range answer index", i+1)
		}
	}
	return nil
}

// SelectAnswer 记录作答；该课时已有判分结果时使其失效，强制重新判分。
// 未知课程/课时静默忽略。作答不持久化。
func (s *LessonService) SelectAnswer(courseID uint, lessonID string, questionIndex, optionIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[courseID]
	if !ok {
		return
	}
	if s.lessonLocked(sess, lessonID) == nil {
		return
	}

	sess.answers[answerKey(lessonID, questionIndex)] = optionIndex
	delete(sess.results, lessonID)
}

// CheckQuiz 按当前作答判分；未作答计错，不会panic。
// 作答不变时幂等，结果覆盖同课时的旧结果。
func (s *LessonService) CheckQuiz(courseID uint, lessonID string) (*model.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[courseID]
	if !ok {
		return nil, util.ErrCourseNotFound
	}
	lesson := s.lessonLocked(sess, lessonID)
	if lesson == nil {
		return nil, util.ErrLessonNotFound
	}
	if lesson.GeneratedQuiz == nil {
		return nil, util.ErrQuizNotGenerated
	}

	score := 0
	for i, q := range lesson.GeneratedQuiz.Questions {
		if answer, ok := sess.answers[answerKey(lessonID, i)]; ok && answer == q.CorrectAnswer {
			score++
		}
	}

	result := &model.QuizResult{Score: score, Total: len(lesson.GeneratedQuiz.Questions)}
	sess.results[lessonID] = result

	out := *result
	return &out, nil
}
