package database

import (
	"fmt"
	"log"

	"rajpath_backend/internal/config"
	"rajpath_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Lesson{},
		&model.LessonResource{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 空库时写入默认课程目录，便于前端直接联调
	var count int64
	db.Model(&model.Course{}).Count(&count)
	if count == 0 {
		seedCatalog(db)
	}

	return db, nil
}

func seedCatalog(db *gorm.DB) {
	courses := []model.Course{
		{
			Title:       "Full Stack Web Development",
			Category:    "Web Development",
			Description: "HTML, CSS, JavaScript, React and Node.js from scratch to deployment.",
			ImageURL:    "https://picsum.photos/seed/webdev/600/400",
			Instructor:  "Raj Kumar",
			Level:       "Beginner",
			Duration:    "12 weeks",
			Language:    "Bilingual",
			Lessons: []model.Lesson{
				{
					ID:          "wd-1",
					Order:       1,
					Title:       "Introduction to HTML",
					Description: "Structure of a web page, semantic tags, forms and accessibility basics.",
					Language:    model.LanguageEnglish,
					Resources: []model.LessonResource{
						{Title: "MDN HTML Guide", URL: "https://developer.mozilla.org/en-US/docs/Learn/HTML", Type: "article"},
					},
				},
				{
					ID:          "wd-2",
					Order:       2,
					Title:       "CSS Fundamentals",
					Description: "Selectors, the box model, flexbox and responsive layouts.",
					Language:    model.LanguageBilingual,
				},
				{
					ID:          "wd-3",
					Order:       3,
					Title:       "JavaScript Basics",
					Description: "Variables, functions, the DOM and event handling.",
					Language:    model.LanguageHindi,
				},
				{
					ID:    "wd-4",
					Order: 4,
					Title: "Project Setup",
				},
			},
		},
		{
			Title:       "Data Analytics with Python",
			Category:    "Data Science",
			Description: "Pandas, NumPy and visualization for working analysts.",
			ImageURL:    "https://picsum.photos/seed/datasci/600/400",
			Instructor:  "Priya Sharma",
			Level:       "Intermediate",
			Duration:    "8 weeks",
			Language:    "English",
			Prerequisites: []string{
				"Basic programming knowledge",
			},
			Lessons: []model.Lesson{
				{
					ID:          "da-1",
					Order:       1,
					Title:       "Python Refresher",
					Description: "Data types, comprehensions and working with files.",
					Language:    model.LanguageEnglish,
				},
				{
					ID:          "da-2",
					Order:       2,
					Title:       "Pandas in Practice",
					Description: "DataFrames, joins, grouping and cleaning messy data.",
					Language:    model.LanguageEnglish,
				},
			},
		},
	}

	for i := range courses {
		if err := db.Create(&courses[i]).Error; err != nil {
			log.Printf("catalog seed failed: %v", err)
		}
	}
}
