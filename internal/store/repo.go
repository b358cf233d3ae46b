package store

import (
	"context"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

// Repo defines storage operations for user notification preferences.
// Absent values are returned as empty strings.
type Repo interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, userID string) (domain.Preference, error)
	NotificationTime(ctx context.Context, userID string) (string, error)
	Timezone(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID string, upd domain.PreferenceUpdate) error
	Close() error
}
