package models

import "time"

// Cache retention policy for tracker records. Records are created lazily on
// first write and refreshed on every subsequent write; the cache owns
// expiry, there is no explicit delete path.
const (
	ExposureRecordTTL = 30 * 24 * time.Hour
	HistoryRecordTTL  = 90 * 24 * time.Hour

	// ExposureSessionWindow is the rolling window kept in RecentSessions.
	ExposureSessionWindow = 30 * 24 * time.Hour

	// MaxRecentSessions caps the RecentSessions list on every write.
	MaxRecentSessions = 1000
)

// SessionExposure is one entry in an ExposureRecord's recent-session list.
type SessionExposure struct {
	SessionID     string    `json:"session_id"`
	BeneficiaryID string    `json:"beneficiary_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// ExposureRecord tracks how often a question has been shown, process-wide.
// Keyed by question ID in the cache.
type ExposureRecord struct {
	QuestionID     string            `json:"question_id"`
	Total          int               `json:"total"`
	UniqueUsers    map[string]bool   `json:"unique_users"`
	RecentSessions []SessionExposure `json:"recent_sessions"`
}

func NewExposureRecord(questionID string) *ExposureRecord {
	return &ExposureRecord{
		QuestionID:     questionID,
		UniqueUsers:    make(map[string]bool),
		RecentSessions: make([]SessionExposure, 0),
	}
}

// QuestionPerformance aggregates a beneficiary's answer history for one question.
type QuestionPerformance struct {
	Attempts  int     `json:"attempts"`
	Correct   int     `json:"correct"`
	TotalTime float64 `json:"total_time"`
	Accuracy  float64 `json:"accuracy"`
}

// HistoryRecord is the per-beneficiary exposure and performance record.
// Keyed by beneficiary ID in the cache.
type HistoryRecord struct {
	BeneficiaryID string                          `json:"beneficiary_id"`
	Exposures     map[string]int                  `json:"exposures"`
	LastSeen      map[string]time.Time            `json:"last_seen"`
	Performance   map[string]*QuestionPerformance `json:"performance"`
	TopicExposure map[string]int                  `json:"topic_exposure"`
}

// NewHistoryRecord returns an empty-shaped record so callers never have to
// nil-check the inner maps.
func NewHistoryRecord(beneficiaryID string) *HistoryRecord {
	return &HistoryRecord{
		BeneficiaryID: beneficiaryID,
		Exposures:     make(map[string]int),
		LastSeen:      make(map[string]time.Time),
		Performance:   make(map[string]*QuestionPerformance),
		TopicExposure: make(map[string]int),
	}
}

// RecentExposure summarizes how recently and how often a beneficiary has seen
// a question, reconstructed from completed sessions.
type RecentExposure struct {
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}
