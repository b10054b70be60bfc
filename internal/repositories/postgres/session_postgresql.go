package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/randomization-service/internal/models"
	"github.com/SAP-F-2025/randomization-service/internal/repositories"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) repositories.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetRecentCompletedSessions(ctx context.Context, beneficiaryID string, limit int) ([]*models.TestSession, error) {
	if limit <= 0 {
		limit = 10
	}

	var sessions []*models.TestSession
	err := r.db.WithContext(ctx).
		Where("beneficiary_id = ? AND status = ?", beneficiaryID, models.SessionCompleted).
		Order("completed_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent completed sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) GetResponses(ctx context.Context, sessionID string) ([]*models.SessionResponse, error) {
	var session models.TestSession
	err := r.db.WithContext(ctx).
		Select("id").
		Where("id = ?", sessionID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	var responses []*models.SessionResponse
	err = r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get responses for session %s: %w", sessionID, err)
	}

	return responses, nil
}
