package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rajpath_backend/internal/config"
	"rajpath_backend/internal/model"
	"rajpath_backend/pkg/monitoring"
)

// AIService 生成式文本服务的瘦客户端。
// 每个用户动作只发一次请求：不重试、不限超时（有意为之，
// 由调用方的门控保证同一课时不并发）。
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *AIService) chat(ctx context.Context, system, prompt string) (string, error) {
	messages := []AIChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}

	reqBody := ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}

	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("AI returned no choices")
}

// GenerateLessonSummary 根据课时标题和描述生成一段简明摘要
func (s *AIService) GenerateLessonSummary(ctx context.Context, title, description string) (string, error) {
	start := time.Now()

	system := "You are a helpful teaching assistant for the Raj Path learning platform. " +
		"Write concise, encouraging study material for working professionals."
	prompt := fmt.Sprintf(
		"Summarize the following lesson in 3-4 short sentences a student can review before class.\n\nLesson: %s\n\n%s",
		title, description)

	summary, err := s.chat(ctx, system, prompt)
	monitoring.ObserveGeneration("summary", start, err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// GenerateQuizForLesson 生成结构化选择题测验。
// 要求模型输出严格JSON，剥掉可能的代码围栏后解析。
func (s *AIService) GenerateQuizForLesson(ctx context.Context, title, description string) (*model.GeneratedQuiz, error) {
	start := time.Now()

	system := "You are a quiz author for the Raj Path learning platform. " +
		"Respond with strict JSON only, no prose, no markdown fences. " +
		`Schema: {"questions":[{"question":string,"options":[string],"correctAnswer":int}]}. ` +
		"correctAnswer is the zero-based index into options. Write 3 questions with 4 options each."
	prompt := fmt.Sprintf("Create a quiz for this lesson.\n\nLesson: %s\n\n%s", title, description)

	raw, err := s.chat(ctx, system, prompt)
	monitoring.ObserveGeneration("quiz", start, err)
	if err != nil {
		return nil, err
	}

	var quiz model.GeneratedQuiz
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &quiz); err != nil {
		return nil, fmt.Errorf("AI returned malformed quiz JSON: %v", err)
	}
	return &quiz, nil
}

func stripCodeFence(raw string) string {
	out := strings.TrimSpace(raw)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```json")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	}
	return strings.TrimSpace(out)
}
