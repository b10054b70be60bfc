package events

import (
	"time"

	"github.com/google/uuid"
)

type ExposureEventType string

const (
	// ExposureRecorded is emitted after a question has actually been served
	// to a beneficiary and the trackers were updated.
	ExposureRecorded ExposureEventType = "question.exposure.recorded"
)

const (
	eventSource  = "randomization-service"
	eventVersion = "1.0"
)

// ExposureEvent is the message published to the analytics pipeline for every
// tracked question exposure.
type ExposureEvent struct {
	ID            string            `json:"id"`
	Type          ExposureEventType `json:"type"`
	QuestionID    string            `json:"question_id"`
	BeneficiaryID string            `json:"beneficiary_id"`
	SessionID     string            `json:"session_id"`
	Source        string            `json:"source"`
	Version       string            `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewExposureEvent builds an ExposureRecorded event with a fresh event ID.
func NewExposureEvent(questionID, beneficiaryID, sessionID string) *ExposureEvent {
	return &ExposureEvent{
		ID:            uuid.NewString(),
		Type:          ExposureRecorded,
		QuestionID:    questionID,
		BeneficiaryID: beneficiaryID,
		SessionID:     sessionID,
		Source:        eventSource,
		Version:       eventVersion,
		Timestamp:     time.Now().UTC(),
	}
}
