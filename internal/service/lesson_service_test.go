package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rajpath_backend/internal/model"
	"rajpath_backend/internal/repository"
	"rajpath_backend/internal/util"
	"rajpath_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	m.Run()
}

// fakeProgressStore 内存版进度存储，保留真实的JSON编解码路径，
// 便于注入损坏的payload
type fakeProgressStore struct {
	mu   sync.Mutex
	data map[uint][]byte
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{data: make(map[uint][]byte)}
}

func (s *fakeProgressStore) Load(ctx context.Context, courseID uint) ([]model.Lesson, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[courseID]
	if !ok {
		return nil, false
	}
	var lessons []model.Lesson
	if err := json.Unmarshal(raw, &lessons); err != nil {
		return nil, false
	}
	return lessons, true
}

func (s *fakeProgressStore) Save(ctx context.Context, courseID uint, lessons []model.Lesson) {
	raw, err := json.Marshal(lessons)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[courseID] = raw
}

type fakeGenerator struct {
	mu           sync.Mutex
	summaryCalls int
	quizCalls    int

	summary    string
	summaryErr error
	quiz       *model.GeneratedQuiz
	quizErr    error

	// 非nil时，生成调用阻塞到该channel关闭，用于在途并发测试
	block chan struct{}
}

func (g *fakeGenerator) GenerateLessonSummary(ctx context.Context, title, description string) (string, error) {
	g.mu.Lock()
	g.summaryCalls++
	block := g.block
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	return g.summary, g.summaryErr
}

func (g *fakeGenerator) GenerateQuizForLesson(ctx context.Context, title, description string) (*model.GeneratedQuiz, error) {
	g.mu.Lock()
	g.quizCalls++
	block := g.block
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	return g.quiz, g.quizErr
}

func testCatalog() []model.Course {
	return []model.Course{
		{
			BaseModel: model.BaseModel{ID: 1},
			Title:     "Full Stack Web Development",
			Category:  "Web Development",
			Lessons: []model.Lesson{
				{ID: "l1", CourseID: 1, Title: "HTML", Description: "Semantic tags and forms."},
				{ID: "l2", CourseID: 1, Title: "CSS", Description: "Box model and flexbox."},
				{ID: "l3", CourseID: 1, Title: "JS", Description: "DOM and events."},
				{ID: "l4", CourseID: 1, Title: "Project"}, // 无描述
			},
		},
	}
}

func newTestService(store ProgressStore, gen ContentGenerator) *LessonService {
	registry := repository.NewCourseRegistry()
	registry.LoadCatalog(testCatalog())
	s := NewLessonService(registry, store, gen)
	// 缩短定时行为，测试不用等真实秒级
	s.completionMarkerTTL = 100 * time.Millisecond
	s.noteSaveQuiet = 120 * time.Millisecond
	s.noteSavedHold = 120 * time.Millisecond
	return s
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed []bool
		want      float64
	}{
		{"空课时集合", nil, 0},
		{"全未完成", []bool{false, false, false, false}, 0},
		{"完成1门", []bool{true, false, false, false}, 25},
		{"全部完成", []bool{true, true, true, true}, 100},
		{"三分之一", []bool{true, false, false}, 100.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lessons []model.Lesson
			for i, c := range tt.completed {
				lessons = append(lessons, model.Lesson{ID: string(rune('a' + i)), Completed: c})
			}
			assert.InDelta(t, tt.want, Progress(lessons), 1e-9)
		})
	}
}

func TestOpenMergesPersistedState(t *testing.T) {
	ctx := context.Background()
	store := newFakeProgressStore()
	summary := "cached summary"
	store.Save(ctx, 1, []model.Lesson{
		{ID: "l1", Completed: true, Notes: "my notes", Summary: &summary},
		{ID: "unknown", Completed: true}, // 目录里不存在的课时被忽略
	})

	s := newTestService(store, &fakeGenerator{})
	view, err := s.Open(ctx, 1)
	require.NoError(t, err)

	require.Len(t, view.Course.Lessons, 4)
	l1 := view.Course.Lessons[0]
	assert.True(t, l1.Completed)
	assert.Equal(t, "my notes", l1.Notes)
	require.NotNil(t, l1.Summary)
	assert.Equal(t, "cached summary", *l1.Summary)
	// 目录字段不受持久化影响
	assert.Equal(t, "HTML", l1.Title)
	assert.InDelta(t, 25.0, view.Course.Progress, 1e-9)
}

func TestOpenUnknownCourse(t *testing.T) {
	s := newTestService(newFakeProgressStore(), &fakeGenerator{})
	_, err := s.Open(context.Background(), 42)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestOpenFallsBackOnCorruptedPayload(t *testing.T) {
	ctx := context.Background()
	store := newFakeProgressStore()
	store.data[1] = []byte("{definitely not a lesson list")

	s := newTestService(store, &fakeGenerator{})
	view, err := s.Open(ctx, 1)
	require.NoError(t, err)

	// 回退目录默认值
	for _, l := range view.Course.Lessons {
		assert.False(t, l.Completed)
		assert.Empty(t, l.Notes)
	}

	// 后续正常变更重新写出合法JSON
	s.ToggleCompletion(ctx, 1, "l1")
	var lessons []model.Lesson
	require.NoError(t, json.Unmarshal(store.data[1], &lessons))
	require.Len(t, lessons, 4)
	assert.True(t, lessons[0].Completed)
}

func TestToggleCompletion(t *testing.T) {
	ctx := context.Background()
	store := newFakeProgressStore()
	s := newTestService(store, &fakeGenerator{})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	s.ToggleCompletion(ctx, 1, "l2")
	view, _ := s.Snapshot(1)
	assert.True(t, view.Course.Lessons[1].Completed)
	assert.InDelta(t, 25.0, view.Course.Progress, 1e-9)

	// 进度镜像进共享注册表
	course, ok := s.Registry.Get(1)
	require.True(t, ok)
	assert.InDelta(t, 25.0, course.Progress, 1e-9)

	// 再翻转一次回到原状，其他课时不受影响
	before := view.Course.Lessons
	s.ToggleCompletion(ctx, 1, "l2")
	view, _ = s.Snapshot(1)
	assert.False(t, view.Course.Lessons[1].Completed)
	for i, l := range view.Course.Lessons {
		if i == 1 {
			continue
		}
		assert.Equal(t, before[i].Completed, l.Completed)
		assert.Equal(t, before[i].Notes, l.Notes)
	}
	assert.InDelta(t, 0.0, view.Course.Progress, 1e-9)
}

func TestToggleCompletionUnknownIDsAreNoops(t *testing.T) {
	ctx := context.Background()
	store := newFakeProgressStore()
	s := newTestService(store, &fakeGenerator{})

	// 未打开课程
	s.ToggleCompletion(ctx, 1, "l1")
	assert.Empty(t, store.data)

	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	// 未知课时
	s.ToggleCompletion(ctx, 1, "nope")
	view, _ := s.Snapshot(1)
	for _, l := range view.Course.Lessons {
		assert.False(t, l.Completed)
	}
}

func TestRecentlyCompletedMarker(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newFakeProgressStore(), &fakeGenerator{})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	s.ToggleCompletion(ctx, 1, "l1")
	view, _ := s.Snapshot(1)
	assert.Equal(t, "l1", view.RecentlyCompleted)

	// 标记在TTL后消失
	require.Eventually(t, func() bool {
		v, _ := s.Snapshot(1)
		return v.RecentlyCompleted == ""
	}, time.Second, 5*time.Millisecond)

	// true->false 不发标记
	s.ToggleCompletion(ctx, 1, "l1")
	view, _ = s.Snapshot(1)
	assert.Empty(t, view.RecentlyCompleted)
}

func TestSetNotesDebounce(t *testing.T) {
	ctx := context.Background()
	store := newFakeProgressStore()
	s := newTestService(store, &fakeGenerator{})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	// 连续三次编辑，间隔小于静默期
	s.SetNotes(ctx, 1, "l1", "a")
	time.Sleep(40 * time.Millisecond)
	s.SetNotes(ctx, 1, "l1", "ab")
	time.Sleep(40 * time.Millisecond)
	s.SetNotes(ctx, 1, "l2", "other lesson")

	view, _ := s.Snapshot(1)
	assert.Equal(t, model.SaveSaving, view.SaveStatus)
	assert.Equal(t, "ab", view.Course.Lessons[0].Notes)
	assert.Equal(t, "other lesson", view.Course.Lessons[1].Notes)

	// 防抖从最后一次编辑计时：80ms后（<120ms静默期）仍是saving。
	// 若从第一次编辑计时，此刻早已翻到saved。
	time.Sleep(80 * time.Millisecond)
	view, _ = s.Snapshot(1)
	assert.Equal(t, model.SaveSaving, view.SaveStatus)

	require.Eventually(t, func() bool {
		v, _ := s.Snapshot(1)
		return v.SaveStatus == model.SaveSaved
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		v, _ := s.Snapshot(1)
		return v.SaveStatus == model.SaveIdle
	}, time.Second, 5*time.Millisecond)
}

func TestSetNotesDebounceSupersededTimer(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newFakeProgressStore(), &fakeGenerator{})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	// 第二次编辑恰好落在第一个静默期定时器触发的时刻：
	// Stop 对已触发的回调无效，作废的回调不得把状态提前翻到 saved
	s.SetNotes(ctx, 1, "l1", "a")
	time.Sleep(s.noteSaveQuiet)
	s.SetNotes(ctx, 1, "l1", "ab")

	time.Sleep(s.noteSaveQuiet / 2)
	view, _ := s.Snapshot(1)
	assert.Equal(t, model.SaveSaving, view.SaveStatus)

	require.Eventually(t, func() bool {
		v, _ := s.Snapshot(1)
		return v.SaveStatus == model.SaveSaved
	}, time.Second, 5*time.Millisecond)
}

func TestRecentlyCompletedMarkerSurvivesStaleTimer(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newFakeProgressStore(), &fakeGenerator{})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	// 同一课时在旧标记定时器触发的时刻被重新完成：
	// 作废的回调不得清掉新标记
	s.ToggleCompletion(ctx, 1, "l1")
	time.Sleep(s.completionMarkerTTL)
	s.ToggleCompletion(ctx, 1, "l1")
	s.ToggleCompletion(ctx, 1, "l1")

	time.Sleep(s.completionMarkerTTL / 2)
	view, _ := s.Snapshot(1)
	assert.Equal(t, "l1", view.RecentlyCompleted)

	require.Eventually(t, func() bool {
		v, _ := s.Snapshot(1)
		return v.RecentlyCompleted == ""
	}, time.Second, 5*time.Millisecond)
}

func TestSetNotesVerbatim(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newFakeProgressStore(), &fakeGenerator{})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	notes := "  keep my whitespace  \n\nand newlines"
	s.SetNotes(ctx, 1, "l1", notes)
	view, _ := s.Snapshot(1)
	assert.Equal(t, notes, view.Course.Lessons[0].Notes)
}

func TestRequestSummary(t *testing.T) {
	ctx := context.Background()
	store := newFakeProgressStore()
	gen := &fakeGenerator{summary: "a tidy summary"}
	s := newTestService(store, gen)
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	lesson, err := s.RequestSummary(ctx, 1, "l1")
	require.NoError(t, err)
	require.NotNil(t, lesson.Summary)
	assert.Equal(t, "a tidy summary", *lesson.Summary)
	assert.Equal(t, 1, gen.summaryCalls)

	// 摘要持久化
	saved, ok := store.Load(ctx, 1)
	require.True(t, ok)
	require.NotNil(t, saved[0].Summary)

	// 已有摘要时是no-op，不再调用生成器
	lesson, err = s.RequestSummary(ctx, 1, "l1")
	require.NoError(t, err)
	assert.Equal(t, "a tidy summary", *lesson.Summary)
	assert.Equal(t, 1, gen.summaryCalls)
}

func TestRequestSummaryNoDescriptionIsNoop(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{summary: "x"}
	s := newTestService(newFakeProgressStore(), gen)
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	lesson, err := s.RequestSummary(ctx, 1, "l4")
	require.NoError(t, err)
	assert.Nil(t, lesson.Summary)
	assert.Zero(t, gen.summaryCalls)

	lesson, err = s.RequestQuiz(ctx, 1, "l4")
	require.NoError(t, err)
	assert.Nil(t, lesson.GeneratedQuiz)
	assert.Zero(t, gen.quizCalls)
}

func TestRequestSummaryFailureIsScopedAndRetryable(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{summaryErr: errors.New("AI API error (status 500): boom")}
	s := newTestService(newFakeProgressStore(), gen)
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	lesson, err := s.RequestSummary(ctx, 1, "l1")
	require.NoError(t, err)
	assert.Nil(t, lesson.Summary)

	view, _ := s.Snapshot(1)
	assert.Contains(t, view.SummaryErrors["l1"], "boom")
	assert.Empty(t, view.Generating)

	// 其余课时状态不受影响
	assert.Empty(t, view.SummaryErrors["l2"])

	// 重试成功后错误清除
	gen.mu.Lock()
	gen.summaryErr = nil
	gen.summary = "second try"
	gen.mu.Unlock()

	lesson, err = s.RequestSummary(ctx, 1, "l1")
	require.NoError(t, err)
	require.NotNil(t, lesson.Summary)
	assert.Equal(t, "second try", *lesson.Summary)

	view, _ = s.Snapshot(1)
	assert.Empty(t, view.SummaryErrors)
}

func TestRequestSummaryInFlightGate(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{summary: "slow summary", block: make(chan struct{})}
	s := newTestService(newFakeProgressStore(), gen)
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RequestSummary(ctx, 1, "l1")
	}()

	// 等第一个请求进入在途状态
	require.Eventually(t, func() bool {
		v, _ := s.Snapshot(1)
		return v.Generating["summary:l1"]
	}, time.Second, 5*time.Millisecond)

	// 同课时重复请求被门控，不再触发生成器
	lesson, err := s.RequestSummary(ctx, 1, "l1")
	require.NoError(t, err)
	assert.Nil(t, lesson.Summary)

	// 不同课时的请求彼此独立
	gen2blocked := make(chan struct{})
	go func() {
		defer close(gen2blocked)
		s.RequestSummary(ctx, 1, "l2")
	}()

	close(gen.block)
	<-done
	<-gen2blocked

	gen.mu.Lock()
	calls := gen.summaryCalls
	gen.mu.Unlock()
	assert.Equal(t, 2, calls) // l1一次 + l2一次

	view, _ := s.Snapshot(1)
	assert.Empty(t, view.Generating)
	require.NotNil(t, view.Course.Lessons[0].Summary)
}

func TestRequestSummaryDiscardedAfterClose(t *testing.T) {
	ctx := context.Background()
	store := newFakeProgressStore()
	gen := &fakeGenerator{summary: "late result", block: make(chan struct{})}
	s := newTestService(store, gen)
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.RequestSummary(ctx, 1, "l1")
		done <- err
	}()

	require.Eventually(t, func() bool {
		v, _ := s.Snapshot(1)
		return v.Generating["summary:l1"]
	}, time.Second, 5*time.Millisecond)

	s.Close(1)
	close(gen.block)
	assert.ErrorIs(t, <-done, util.ErrCourseNotFound)

	// 迟到的结果没有写进存储
	if saved, ok := store.Load(ctx, 1); ok {
		assert.Nil(t, saved[0].Summary)
	}

	// 重新打开得到干净会话
	view, err := s.Open(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, view.Course.Lessons[0].Summary)
}

func quizFixture() *model.GeneratedQuiz {
	return &model.GeneratedQuiz{
		Questions: []model.GeneratedQuestion{
			{Question: "q1", Options: []string{"a", "b", "c"}, CorrectAnswer: 1},
			{Question: "q2", Options: []string{"a", "b"}, CorrectAnswer: 0},
			{Question: "q3", Options: []string{"a", "b", "c"}, CorrectAnswer: 2},
		},
	}
}

func TestRequestQuizInstallsAndClearsPriorState(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{quiz: quizFixture()}
	s := newTestService(newFakeProgressStore(), gen)
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	lesson, err := s.RequestQuiz(ctx, 1, "l1")
	require.NoError(t, err)
	require.NotNil(t, lesson.GeneratedQuiz)
	assert.Len(t, lesson.GeneratedQuiz.Questions, 3)

	// 已安装测验后再次请求是no-op
	_, err = s.RequestQuiz(ctx, 1, "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.quizCalls)
}

func TestRequestQuizValidation(t *testing.T) {
	tests := []struct {
		name string
		quiz *model.GeneratedQuiz
	}{
		{"空测验", &model.GeneratedQuiz{}},
		{"选项为空", &model.GeneratedQuiz{Questions: []model.GeneratedQuestion{{Question: "q"}}}},
		{"答案越界", &model.GeneratedQuiz{Questions: []model.GeneratedQuestion{
			{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 2},
		}}},
		{"答案为负", &model.GeneratedQuiz{Questions: []model.GeneratedQuestion{
			{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: -1},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestService(newFakeProgressStore(), &fakeGenerator{quiz: tt.quiz})
			_, err := s.Open(ctx, 1)
			require.NoError(t, err)

			lesson, err := s.RequestQuiz(ctx, 1, "l1")
			require.NoError(t, err)
			assert.Nil(t, lesson.GeneratedQuiz)

			view, _ := s.Snapshot(1)
			assert.NotEmpty(t, view.QuizErrors["l1"])
		})
	}
}

func TestQuizAnswerAndCheckFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newFakeProgressStore(), &fakeGenerator{quiz: quizFixture()})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)
	_, err = s.RequestQuiz(ctx, 1, "l1")
	require.NoError(t, err)

	// 正确答案 [1,0,2]，作答 [1,0,1] -> 2/3
	s.SelectAnswer(1, "l1", 0, 1)
	s.SelectAnswer(1, "l1", 1, 0)
	s.SelectAnswer(1, "l1", 2, 1)

	result, err := s.CheckQuiz(1, "l1")
	require.NoError(t, err)
	assert.Equal(t, &model.QuizResult{Score: 2, Total: 3}, result)

	// 作答不变时幂等
	again, err := s.CheckQuiz(1, "l1")
	require.NoError(t, err)
	assert.Equal(t, result, again)

	// 任何一次重新作答使结果失效
	s.SelectAnswer(1, "l1", 2, 2)
	view, _ := s.Snapshot(1)
	assert.NotContains(t, view.QuizResults, "l1")

	result, err = s.CheckQuiz(1, "l1")
	require.NoError(t, err)
	assert.Equal(t, &model.QuizResult{Score: 3, Total: 3}, result)
}

func TestCheckQuizUnansweredCountsWrong(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newFakeProgressStore(), &fakeGenerator{quiz: quizFixture()})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)
	_, err = s.RequestQuiz(ctx, 1, "l1")
	require.NoError(t, err)

	// 只答一题
	s.SelectAnswer(1, "l1", 0, 1)
	result, err := s.CheckQuiz(1, "l1")
	require.NoError(t, err)
	assert.Equal(t, &model.QuizResult{Score: 1, Total: 3}, result)
}

func TestCheckQuizRequiresInstalledQuiz(t *testing.T) {
	ctx := context.Background()
	s := newTestService(newFakeProgressStore(), &fakeGenerator{})
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	_, err = s.CheckQuiz(1, "l1")
	assert.ErrorIs(t, err, util.ErrQuizNotGenerated)
}

func TestNewQuizClearsAnswersAndResults(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{quiz: quizFixture()}
	s := newTestService(newFakeProgressStore(), gen)
	_, err := s.Open(ctx, 1)
	require.NoError(t, err)

	_, err = s.RequestQuiz(ctx, 1, "l1")
	require.NoError(t, err)
	s.SelectAnswer(1, "l1", 0, 1)
	_, err = s.CheckQuiz(1, "l1")
	require.NoError(t, err)

	// 另一课时装新测验不影响l1
	_, err = s.RequestQuiz(ctx, 1, "l2")
	require.NoError(t, err)
	view, _ := s.Snapshot(1)
	assert.Contains(t, view.QuizResults, "l1")
	assert.Equal(t, 1, view.UserAnswers["l1-0"])
}
