// Package models provides data model definitions for the EduSync client core.
package models

import (
	"encoding/json"
	"time"
)

// Progress record origins. An optimistic record was written by the
// client before server confirmation; a server record is authoritative.
const (
	OriginOptimistic = "optimistic"
	OriginServer     = "server"
)

// LocalProgressRecord is the client-side shadow of a student's
// lesson-completion event. Unique by (student, lesson): a later
// completion overwrites the earlier record rather than duplicating it.
type LocalProgressRecord struct {
	ID               string `json:"_id" db:"id"`
	Student          string `json:"student" db:"student"`
	Lesson           string `json:"-" db:"lesson"`
	IsCompleted      bool   `json:"isCompleted" db:"is_completed"`
	QuizScore        int    `json:"quizScore" db:"quiz_score"`
	TotalQuestions   int    `json:"totalQuestions" db:"total_questions"`
	TimeSpentSeconds int    `json:"timeSpentSeconds,omitempty" db:"time_spent_seconds"`
	CompletedAt      string `json:"completedAt,omitempty" db:"completed_at"`
	Origin           string `json:"origin" db:"origin"`
	UpdatedAt        int64  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for LocalProgressRecord.
func (LocalProgressRecord) TableName() string {
	return "progress"
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (p *LocalProgressRecord) UpdatedAtTime() time.Time {
	return time.Unix(p.UpdatedAt, 0)
}

// LessonRef is a lesson reference as returned by the progress API.
// The server returns either a bare lesson id or a populated object;
// both decode to the lesson id.
type LessonRef string

// UnmarshalJSON implements json.Unmarshaler for LessonRef.
func (r *LessonRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = LessonRef(id)
		return nil
	}
	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = LessonRef(obj.ID)
	return nil
}

// String returns the lesson id.
func (r LessonRef) String() string {
	return string(r)
}

// ServerProgress is the authoritative progress record returned by
// POST /api/lessons/:id/complete and by replayed completion actions.
type ServerProgress struct {
	ID               string    `json:"_id"`
	Student          string    `json:"student"`
	Lesson           LessonRef `json:"lesson"`
	IsCompleted      bool      `json:"isCompleted"`
	QuizScore        int       `json:"quizScore"`
	TotalQuestions   int       `json:"totalQuestions"`
	TimeSpentSeconds int       `json:"timeSpentSeconds,omitempty"`
	CompletedAt      string    `json:"completedAt,omitempty"`
	CreatedAt        string    `json:"createdAt,omitempty"`
	UpdatedAt        string    `json:"updatedAt,omitempty"`
}

// ToLocal converts a server progress record into the local shadow form.
func (p *ServerProgress) ToLocal() *LocalProgressRecord {
	return &LocalProgressRecord{
		ID:               p.ID,
		Student:          p.Student,
		Lesson:           p.Lesson.String(),
		IsCompleted:      p.IsCompleted,
		QuizScore:        p.QuizScore,
		TotalQuestions:   p.TotalQuestions,
		TimeSpentSeconds: p.TimeSpentSeconds,
		CompletedAt:      p.CompletedAt,
		Origin:           OriginServer,
		UpdatedAt:        time.Now().Unix(),
	}
}
