package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCourseNotFound     = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrQuizNotGenerated   = errors.New("quiz not generated for this lesson")
	ErrCourseIncomplete   = errors.New("course not completed")
	ErrInvalidVoice       = errors.New("unknown voice")
	ErrSpeechBusy         = errors.New("speech synthesis already in progress")
)
