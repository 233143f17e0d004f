package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"rajpath_backend/internal/config"
	"rajpath_backend/internal/model"
	"rajpath_backend/internal/util"
	"rajpath_backend/pkg/monitoring"
)

// SpeechService 文本转语音客户端。上游返回base64编码的
// 单声道24kHz 16bit PCM，这里解码并封装成WAV直接下发。
// 与AI客户端一样：单次请求、无超时、无重试。
type SpeechService struct {
	config config.TTSConfig
	client *http.Client

	mu       sync.Mutex
	speaking map[string]bool // 会话id -> 是否有在途合成
}

func NewSpeechService(cfg config.TTSConfig) *SpeechService {
	return &SpeechService{
		config:   cfg,
		client:   &http.Client{},
		speaking: make(map[string]bool),
	}
}

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type speechResponse struct {
	Audio string `json:"audio"` // base64 PCM
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SynthesisResult 合成产物与内容类型
type SynthesisResult struct {
	Audio       []byte
	ContentType string
}

// Synthesize 为一段文本合成语音。同一viewer会话同时只允许
// 一个在途请求，重复触发直接拒绝（对应界面的播放按钮置灰）。
func (s *SpeechService) Synthesize(ctx context.Context, sessionID, text string, voice model.TTSVoice) (*SynthesisResult, error) {
	if voice == "" {
		voice = model.TTSVoice(s.config.DefaultVoice)
	}
	if !voice.Valid() {
		return nil, util.ErrInvalidVoice
	}

	s.mu.Lock()
	if s.speaking[sessionID] {
		s.mu.Unlock()
		return nil, util.ErrSpeechBusy
	}
	s.speaking[sessionID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.speaking, sessionID)
		s.mu.Unlock()
	}()

	start := time.Now()
	result, err := s.synthesize(ctx, text, voice)
	monitoring.ObserveGeneration("speech", start, err)
	return result, err
}

func (s *SpeechService) synthesize(ctx context.Context, text string, voice model.TTSVoice) (*SynthesisResult, error) {
	jsonData, err := json.Marshal(speechRequest{Text: text, Voice: string(voice)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/synthesize", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS API error (status %d): %s", resp.StatusCode, string(body))
	}

	var speech speechResponse
	if err := json.Unmarshal(body, &speech); err != nil {
		return nil, err
	}
	if speech.Error != nil {
		return nil, fmt.Errorf("TTS API error: %s", speech.Error.Message)
	}

	pcm, err := util.DecodeAudioPayload(speech.Audio)
	if err != nil {
		return nil, err
	}

	return &SynthesisResult{
		Audio:       util.PCMToWAV(pcm, s.config.SampleRate, 1),
		ContentType: "audio/wav",
	}, nil
}
