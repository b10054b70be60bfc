package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/randomization-service/internal/models"
)

var ErrRecordNotFound = errors.New("record not found")

// IsNotFoundError reports whether err is the repository's not-found sentinel.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// SessionRepository is the collaborator boundary the engine needs from the
// session store: recent completed sessions for a beneficiary and the
// per-question responses of a session. The repository owns everything else
// about session lifecycle.
type SessionRepository interface {
	GetRecentCompletedSessions(ctx context.Context, beneficiaryID string, limit int) ([]*models.TestSession, error)
	GetResponses(ctx context.Context, sessionID string) ([]*models.SessionResponse, error)
}
