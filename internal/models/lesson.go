// Package models provides data model definitions for the EduSync client core.
package models

import "time"

// Lesson subjects as defined by the lesson service.
const (
	SubjectMath            = "Math"
	SubjectScience         = "Science"
	SubjectEnglish         = "English"
	SubjectPunjabi         = "Punjabi"
	SubjectSocialStudies   = "Social Studies"
	SubjectComputerScience = "Computer Science"
)

// QuizQuestion is a single multiple-choice question inside a lesson quiz.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// Quiz is the quiz payload embedded in a lesson record.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
	IsActive  bool           `json:"isActive"`
}

// CreatedBy identifies the teacher that authored a lesson.
type CreatedBy struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// Lesson mirrors a server lesson record. The client never mutates a
// lesson; a cached copy is superseded wholesale by the next successful
// fetch.
type Lesson struct {
	ID          string    `json:"_id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject" db:"subject"`
	Category    string    `json:"category,omitempty" db:"category"`
	ClassLevel  int       `json:"classLevel" db:"class_level"`
	Language    string    `json:"language,omitempty" db:"language"`
	ContentType string    `json:"contentType,omitempty" db:"content_type"`
	Content     string    `json:"content,omitempty"`
	VideoLink   string    `json:"videoLink,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	Quiz        Quiz      `json:"quiz,omitempty"`
	CreatedBy   CreatedBy `json:"createdBy,omitempty"`
	CreatedAt   string    `json:"createdAt,omitempty"`
	UpdatedAt   string    `json:"updatedAt,omitempty"`

	// CachedAt is set by the local store on upsert; it is not part of
	// the server record.
	CachedAt int64 `json:"-" db:"cached_at"`
}

// TableName returns the table name for Lesson.
func (Lesson) TableName() string {
	return "lessons"
}

// CachedAtTime returns the CachedAt as time.Time.
func (l *Lesson) CachedAtTime() time.Time {
	return time.Unix(l.CachedAt, 0)
}

// LessonFilter narrows a cached-lesson lookup. Zero values mean "any".
type LessonFilter struct {
	Subject     string
	Category    string
	ClassLevel  int
	Language    string
	ContentType string
}

// Matches reports whether the lesson satisfies every set filter field.
func (f LessonFilter) Matches(l *Lesson) bool {
	if f.Subject != "" && l.Subject != f.Subject {
		return false
	}
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.ClassLevel != 0 && l.ClassLevel != f.ClassLevel {
		return false
	}
	if f.Language != "" && l.Language != f.Language {
		return false
	}
	if f.ContentType != "" && l.ContentType != f.ContentType {
		return false
	}
	return true
}
