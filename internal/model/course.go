package model

// LessonLanguage 课程语言标签（英文/印地语/双语）
type LessonLanguage string

const (
	LanguageEnglish   LessonLanguage = "English"
	LanguageHindi     LessonLanguage = "Hindi"
	LanguageBilingual LessonLanguage = "Bilingual"
)

type Course struct {
	BaseModel
	Title         string   `gorm:"size:255;not null" json:"title"`
	Category      string   `gorm:"size:100;index" json:"category"`
	Description   string   `gorm:"type:text" json:"description"`
	ImageURL      string   `gorm:"size:512" json:"imageUrl"`
	Instructor    string   `gorm:"size:100" json:"instructor,omitempty"`
	Level         string   `gorm:"size:50" json:"level,omitempty"`
	Duration      string   `gorm:"size:50" json:"duration,omitempty"`
	Language      string   `gorm:"size:20" json:"language,omitempty"`
	Prerequisites []string `gorm:"serializer:json" json:"prerequisites,omitempty"`

	// Progress 由课时完成状态推导，不落库；注册表持有最新值
	Progress float64  `gorm:"-" json:"progress"`
	Lessons  []Lesson `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons"`
}

func (Course) TableName() string {
	return "courses"
}

// Lesson 课时。Completed/Notes/Summary/GeneratedQuiz 是会话产物，
// 持久化到进度存储（Redis），目录库只提供默认值。
type Lesson struct {
	ID          string         `gorm:"primaryKey;size:64" json:"id"`
	CourseID    uint           `gorm:"index" json:"-"`
	Order       int            `gorm:"column:sort_order;default:0" json:"-"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Completed   bool           `gorm:"default:false" json:"completed"`
	Notes       string         `gorm:"type:text" json:"notes"`
	Language    LessonLanguage `gorm:"size:20" json:"language,omitempty"`
	VideoURL    string         `gorm:"size:512" json:"videoUrl,omitempty"`
	AudioURL    string         `gorm:"size:512" json:"audioUrl,omitempty"`

	Resources []LessonResource `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"resources,omitempty"`

	Summary       *string        `gorm:"-" json:"summary,omitempty"`
	GeneratedQuiz *GeneratedQuiz `gorm:"-" json:"generatedQuiz,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

type LessonResource struct {
	BaseModel `json:"-"`
	LessonID  string `gorm:"index;size:64" json:"-"`
	Title     string `gorm:"size:255;not null" json:"title"`
	URL       string `gorm:"size:512;not null" json:"url"`
	Type      string `gorm:"size:50" json:"type"`
}

func (LessonResource) TableName() string {
	return "lesson_resources"
}
