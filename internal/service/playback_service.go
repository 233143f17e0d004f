package service

import (
	"sync"

	"github.com/google/uuid"
)

// PlaybackService 独占播放注册表。每个viewer会话同时只有一个
// 活动媒体：请求播放新媒体会顶掉旧的，并把旧媒体id返回给
// 客户端去暂停。替代前端直接改别的组件媒体句柄的做法。
type PlaybackService struct {
	mu     sync.Mutex
	active map[string]string // viewer会话id -> 正在播放的媒体id
}

func NewPlaybackService() *PlaybackService {
	return &PlaybackService{active: make(map[string]string)}
}

// NewSession 分配viewer会话id，客户端后续请求携带
func (s *PlaybackService) NewSession() string {
	return uuid.New().String()
}

// RequestPlayback 申请独占播放，返回之前在播的媒体id（没有则为空）
func (s *PlaybackService) RequestPlayback(sessionID, mediaID string) (previous string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous = s.active[sessionID]
	if previous == mediaID {
		previous = ""
	}
	s.active[sessionID] = mediaID
	return previous
}

func (s *PlaybackService) Stop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionID)
}

func (s *PlaybackService) Active(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[sessionID]
}
