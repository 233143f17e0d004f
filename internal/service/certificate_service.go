package service

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"rajpath_backend/internal/model"
	"rajpath_backend/internal/repository"
	"rajpath_backend/internal/util"
)

// CertificateService 结业证书与成果分享。
// 只有进度100%的课程才可领证书或生成分享文案。
type CertificateService struct {
	Registry *repository.CourseRegistry
}

func NewCertificateService(registry *repository.CourseRegistry) *CertificateService {
	return &CertificateService{Registry: registry}
}

type Certificate struct {
	UserName       string `json:"userName"`
	CourseTitle    string `json:"courseTitle"`
	CompletionDate string `json:"completionDate"`
}

type SharePost struct {
	Text        string `json:"text"`
	LinkedInURL string `json:"linkedInUrl"`
}

var hashtagSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

func (s *CertificateService) completedCourse(courseID uint) (*model.Course, error) {
	course, ok := s.Registry.Get(courseID)
	if !ok {
		return nil, util.ErrCourseNotFound
	}
	if Progress(course.Lessons) < 100 {
		return nil, util.ErrCourseIncomplete
	}
	return course, nil
}

func (s *CertificateService) IssueCertificate(user *model.User, courseID uint) (*Certificate, error) {
	course, err := s.completedCourse(courseID)
	if err != nil {
		return nil, err
	}

	return &Certificate{
		UserName:       user.Name,
		CourseTitle:    course.Title,
		CompletionDate: time.Now().Format("January 2, 2006"),
	}, nil
}

// BuildSharePost 生成LinkedIn分享文案和预填链接
func (s *CertificateService) BuildSharePost(user *model.User, courseID uint) (*SharePost, error) {
	course, err := s.completedCourse(courseID)
	if err != nil {
		return nil, err
	}

	instructor := course.Instructor
	if instructor == "" {
		instructor = "the team at Raj Path"
	}
	categoryHashtag := hashtagSanitizer.ReplaceAllString(course.Category, "")

	text := fmt.Sprintf(`I'm excited to share that I've successfully completed the "%s" course on Raj Path! 🎉

This comprehensive program has equipped me with valuable skills in %s. A big thank you to my instructor, %s, and the entire platform for this incredible learning journey.

I'm looking forward to applying my new skills and knowledge.

#RajPath #CareerGrowth #SkillIndia #OnlineLearning #%s`,
		course.Title, course.Category, instructor, categoryHashtag)

	return &SharePost{
		Text:        text,
		LinkedInURL: "https://www.linkedin.com/feed/?shareActive=true&text=" + url.QueryEscape(text),
	}, nil
}
