package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"rajpath_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, handler func(req ChatCompletionRequest) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, content := handler(req)
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, content)
			return
		}
		resp := ChatCompletionResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message AIChatMessage `json:"message"`
		}{Message: AIChatMessage{Role: "assistant", Content: content}})
		json.NewEncoder(w).Encode(resp)
	}))
}

func newAIService(baseURL string) *AIService {
	return NewAIService(config.AIConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
	})
}

func TestGenerateLessonSummary(t *testing.T) {
	srv := chatServer(t, func(req ChatCompletionRequest) (int, string) {
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "HTML Basics")
		return http.StatusOK, "\n  A short summary.  \n"
	})
	defer srv.Close()

	summary, err := newAIService(srv.URL).GenerateLessonSummary(context.Background(), "HTML Basics", "Tags and forms.")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", summary)
}

func TestGenerateLessonSummaryUpstreamError(t *testing.T) {
	srv := chatServer(t, func(req ChatCompletionRequest) (int, string) {
		return http.StatusInternalServerError, "overloaded"
	})
	defer srv.Close()

	_, err := newAIService(srv.URL).GenerateLessonSummary(context.Background(), "t", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "overloaded")
}

func TestGenerateLessonSummaryErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"quota exceeded"}}`)
	}))
	defer srv.Close()

	_, err := newAIService(srv.URL).GenerateLessonSummary(context.Background(), "t", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateLessonSummaryNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := newAIService(srv.URL).GenerateLessonSummary(context.Background(), "t", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestGenerateQuizForLesson(t *testing.T) {
	quizJSON := `{"questions":[{"question":"What is HTML?","options":["a","b","c","d"],"correctAnswer":2}]}`

	tests := []struct {
		name    string
		content string
	}{
		{"裸JSON", quizJSON},
		{"带代码围栏", "```json\n" + quizJSON + "\n```"},
		{"无语言标记的围栏", "```\n" + quizJSON + "\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, func(req ChatCompletionRequest) (int, string) {
				return http.StatusOK, tt.content
			})
			defer srv.Close()

			quiz, err := newAIService(srv.URL).GenerateQuizForLesson(context.Background(), "t", "d")
			require.NoError(t, err)
			require.Len(t, quiz.Questions, 1)
			assert.Equal(t, "What is HTML?", quiz.Questions[0].Question)
			assert.Equal(t, 2, quiz.Questions[0].CorrectAnswer)
		})
	}
}

func TestGenerateQuizForLessonMalformedJSON(t *testing.T) {
	srv := chatServer(t, func(req ChatCompletionRequest) (int, string) {
		return http.StatusOK, "Sure! Here is your quiz: ..."
	})
	defer srv.Close()

	_, err := newAIService(srv.URL).GenerateQuizForLesson(context.Background(), "t", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed quiz JSON")
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}
