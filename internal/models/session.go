package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// TestSession is a test-taking session owned by the session repository. The
// engine only reads completed sessions to reconstruct recent exposure.
type TestSession struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	BeneficiaryID string         `json:"beneficiary_id" gorm:"not null;size:36;index"`
	TestID        string         `json:"test_id" gorm:"size:36;index"`
	Status        SessionStatus  `json:"status" gorm:"default:in_progress;index"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at"`
	Metadata      datatypes.JSON `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Responses []SessionResponse `json:"responses" gorm:"foreignKey:SessionID"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}

// SessionResponse is a single answered question within a session.
type SessionResponse struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SessionID  string    `json:"session_id" gorm:"not null;size:36;index"`
	QuestionID string    `json:"question_id" gorm:"not null;size:36;index"`
	IsCorrect  bool      `json:"is_correct"`
	TimeSpent  float64   `json:"time_spent"` // Seconds
	CreatedAt  time.Time `json:"created_at"`
}

func (SessionResponse) TableName() string {
	return "session_responses"
}
