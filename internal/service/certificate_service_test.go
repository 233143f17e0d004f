package service

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"rajpath_backend/internal/model"
	"rajpath_backend/internal/repository"
	"rajpath_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func certRegistry(completed bool) *repository.CourseRegistry {
	reg := repository.NewCourseRegistry()
	reg.LoadCatalog([]model.Course{
		{
			BaseModel:  model.BaseModel{ID: 1},
			Title:      "Full Stack Web Development",
			Category:   "Web Development",
			Instructor: "Anjali Sharma",
			Lessons: []model.Lesson{
				{ID: "l1", Completed: completed},
				{ID: "l2", Completed: completed},
			},
		},
	})
	return reg
}

func TestIssueCertificate(t *testing.T) {
	s := NewCertificateService(certRegistry(true))
	user := &model.User{Name: "Raj Kumar"}

	cert, err := s.IssueCertificate(user, 1)
	require.NoError(t, err)
	assert.Equal(t, "Raj Kumar", cert.UserName)
	assert.Equal(t, "Full Stack Web Development", cert.CourseTitle)
	assert.Equal(t, time.Now().Format("January 2, 2006"), cert.CompletionDate)
}

func TestIssueCertificateIncompleteCourse(t *testing.T) {
	s := NewCertificateService(certRegistry(false))
	_, err := s.IssueCertificate(&model.User{Name: "Raj Kumar"}, 1)
	assert.ErrorIs(t, err, util.ErrCourseIncomplete)
}

func TestIssueCertificateUnknownCourse(t *testing.T) {
	s := NewCertificateService(certRegistry(true))
	_, err := s.IssueCertificate(&model.User{Name: "Raj Kumar"}, 99)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestBuildSharePost(t *testing.T) {
	s := NewCertificateService(certRegistry(true))

	post, err := s.BuildSharePost(&model.User{Name: "Raj Kumar"}, 1)
	require.NoError(t, err)

	assert.Contains(t, post.Text, `"Full Stack Web Development"`)
	assert.Contains(t, post.Text, "Anjali Sharma")
	// 类目转成纯字母数字的话题标签
	assert.Contains(t, post.Text, "#WebDevelopment")
	assert.Contains(t, post.Text, "#RajPath")

	require.True(t, strings.HasPrefix(post.LinkedInURL, "https://www.linkedin.com/feed/?shareActive=true&text="))
	encoded := strings.TrimPrefix(post.LinkedInURL, "https://www.linkedin.com/feed/?shareActive=true&text=")
	decoded, err := url.QueryUnescape(encoded)
	require.NoError(t, err)
	assert.Equal(t, post.Text, decoded)
}

func TestBuildSharePostFallbackInstructor(t *testing.T) {
	reg := repository.NewCourseRegistry()
	reg.LoadCatalog([]model.Course{
		{
			BaseModel: model.BaseModel{ID: 2},
			Title:     "Data Analytics",
			Category:  "Data & AI",
			Lessons:   []model.Lesson{{ID: "d1", Completed: true}},
		},
	})
	s := NewCertificateService(reg)

	post, err := s.BuildSharePost(&model.User{Name: "Raj Kumar"}, 2)
	require.NoError(t, err)
	assert.Contains(t, post.Text, "the team at Raj Path")
	assert.Contains(t, post.Text, "#DataAI")
}
