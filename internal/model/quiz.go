package model

// GeneratedQuiz AI为课时生成的测验，生成后缓存在课时上
type GeneratedQuiz struct {
	Questions []GeneratedQuestion `json:"questions"`
}

type GeneratedQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	// CorrectAnswer 正确选项在 Options 中的下标
	CorrectAnswer int `json:"correctAnswer"`
}

// QuizResult 判分结果，按需重算，不持久化；
// 任何一次重新选择答案都会使其失效
type QuizResult struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// SaveStatus 笔记保存状态机：idle -> saving -> saved -> idle
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
)
